package page

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"page-server/internal/assets"
	"page-server/internal/bridge"
	"page-server/internal/logging"
	"page-server/internal/metrics"
	"page-server/internal/session"
)

//go:embed templates/*.html
var layoutFS embed.FS

// DataParam is the query parameter that asks for loader data as JSON.
const DataParam = "_data"

// ManifestSource provides the active build manifest for asset URLs.
type ManifestSource interface {
	Current() *assets.Manifest
}

// Options configures a Renderer.
type Options struct {
	// Templates holds the route templates, parsed after the layout.
	Templates fs.FS
	Patterns  []string
	Manifests ManifestSource
	// Stylesheets and Scripts are logical asset names linked from every page.
	Stylesheets []string
	Scripts     []string
	// LiveReloadPath enables the live reload client when non-empty.
	LiveReloadPath string
}

// Renderer turns a route table into an http.Handler.
type Renderer struct {
	templates *template.Template
	opts      Options
}

// View is the value route templates and the layout execute with.
type View struct {
	RouteID string
	Meta    []MetaTag
	Data    Data
	Context bridge.LoadContext
	Body    template.HTML

	Stylesheets    []string
	Scripts        []string
	LiveReload     bool
	LiveReloadPath string
}

// NewRenderer parses the layout and the route templates.
func NewRenderer(opts Options) (*Renderer, error) {
	rd := &Renderer{opts: opts}
	funcs := template.FuncMap{
		"asset": rd.asset,
		"json":  toJSON,
	}
	t, err := template.New("page").Funcs(funcs).ParseFS(layoutFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if opts.Templates != nil {
		if t, err = t.ParseFS(opts.Templates, opts.Patterns...); err != nil {
			return nil, fmt.Errorf("parse route templates: %w", err)
		}
	}
	rd.templates = t
	return rd, nil
}

func (rd *Renderer) asset(name string) string {
	var m *assets.Manifest
	if rd.opts.Manifests != nil {
		m = rd.opts.Manifests.Current()
	}
	return m.Resolve(name)
}

func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

// Handler returns a router serving routes. Paths no route matches get the
// 404 page.
func (rd *Renderer) Handler(routes []Route) http.Handler {
	r := mux.NewRouter()
	for i := range routes {
		route := &routes[i]
		if route.Template != "" && rd.templates.Lookup(route.Template) == nil {
			logging.Warn("Route %s references undefined template %q", route.ID, route.Template)
		}
		r.HandleFunc(route.Pattern, func(w http.ResponseWriter, req *http.Request) {
			rd.serveLoader(w, req, route)
		}).Methods(http.MethodGet, http.MethodHead)
		if route.Action != nil {
			r.HandleFunc(route.Pattern, func(w http.ResponseWriter, req *http.Request) {
				rd.serveAction(w, req, route)
			}).Methods(http.MethodPost)
		}
	}
	r.NotFoundHandler = http.HandlerFunc(rd.NotFound)
	return r
}

func (rd *Renderer) args(r *http.Request) Args {
	return Args{
		Request: r,
		Context: bridge.FromContext(r.Context()),
		Params:  mux.Vars(r),
		Session: session.FromContext(r.Context()),
	}
}

func (rd *Renderer) serveLoader(w http.ResponseWriter, r *http.Request, route *Route) {
	args := rd.args(r)
	dataRequest := r.URL.Query().Has(DataParam)
	if dataRequest && r.URL.Query().Get(DataParam) != route.ID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no loader for " + r.URL.Query().Get(DataParam)})
		return
	}

	data := Data{}
	if route.Loader != nil {
		start := time.Now()
		d, err := route.Loader(args)
		metrics.LoaderDuration.WithLabelValues(route.ID).Observe(time.Since(start).Seconds())
		if err != nil {
			rd.fail(w, r, route.ID, dataRequest, err)
			return
		}
		if d != nil {
			data = d
		}
	}

	if dataRequest {
		resolved, err := resolveAll(r.Context(), data)
		if err != nil {
			rd.fail(w, r, route.ID, true, err)
			return
		}
		writeJSON(w, http.StatusOK, resolved)
		return
	}

	deferred := collectDeferred(data)
	view := rd.view(args.Context, route.ID, data)
	if route.Meta != nil {
		view.Meta = route.Meta(data)
	}
	body, err := rd.execute(route.Template, view)
	if err != nil {
		rd.fail(w, r, route.ID, false, err)
		return
	}
	view.Body = body

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := rd.templates.ExecuteTemplate(w, "document.start", view); err != nil {
		logging.Error("Failed to write document for %s: %v", route.ID, err)
		return
	}
	flush(w)
	rd.stream(w, r.Context(), route, deferred)
	if err := rd.templates.ExecuteTemplate(w, "document.end", view); err != nil {
		logging.Error("Failed to finish document for %s: %v", route.ID, err)
	}
}

// stream writes each deferred value as soon as it resolves, in resolution
// order. It returns early when ctx is done.
func (rd *Renderer) stream(w http.ResponseWriter, ctx context.Context, route *Route, deferred []deferredEntry) {
	if len(deferred) == 0 {
		return
	}
	start := time.Now()
	ready := make(chan deferredEntry, len(deferred))
	for _, e := range deferred {
		go func(e deferredEntry) {
			select {
			case <-e.d.Done():
				ready <- e
			case <-ctx.Done():
			}
		}(e)
	}
	for range deferred {
		select {
		case e := <-ready:
			metrics.DeferredResolveDuration.WithLabelValues(route.ID).Observe(time.Since(start).Seconds())
			if err := rd.writeChunk(w, route, e); err != nil {
				logging.Error("Failed to stream %s.%s: %v", route.ID, e.key, err)
				return
			}
			flush(w)
		case <-ctx.Done():
			logging.Debug("Client left before %s finished streaming", route.ID)
			return
		}
	}
}

func (rd *Renderer) writeChunk(w http.ResponseWriter, route *Route, e deferredEntry) error {
	var content template.HTML
	var err error
	if e.d.err != nil {
		logging.Warn("Deferred %s.%s failed: %v", route.ID, e.key, e.d.err)
		content, err = rd.execute("deferred.error", e.d.err)
	} else {
		content, err = rd.execute(route.Template+"."+e.key, e.d.value)
	}
	if err != nil {
		return err
	}
	return rd.templates.ExecuteTemplate(w, "deferred.chunk", struct {
		ID      string
		Content template.HTML
	}{ID: e.d.ID(), Content: content})
}

func (rd *Renderer) serveAction(w http.ResponseWriter, r *http.Request, route *Route) {
	result, err := route.Action(rd.args(r))
	if err != nil {
		status, message := statusOf(err)
		if status >= http.StatusInternalServerError {
			logging.Error("Action %s failed: %v", route.ID, err)
		}
		metrics.ActionsTotal.WithLabelValues(route.ID, statusLabel(status)).Inc()
		writeJSON(w, status, map[string]string{"error": message})
		return
	}
	metrics.ActionsTotal.WithLabelValues(route.ID, statusLabel(http.StatusOK)).Inc()
	writeJSON(w, http.StatusOK, result)
}

// fail answers a failed loader with JSON for data requests and an error page
// otherwise.
func (rd *Renderer) fail(w http.ResponseWriter, r *http.Request, routeID string, dataRequest bool, err error) {
	status, message := statusOf(err)
	if status >= http.StatusInternalServerError {
		logging.Error("Loader %s failed: %v", routeID, err)
	}
	if dataRequest {
		writeJSON(w, status, map[string]string{"error": message})
		return
	}
	if status == http.StatusNotFound {
		rd.NotFound(w, r)
		return
	}
	rd.renderStatic(w, r, status, "page.error", []MetaTag{{Title: message}}, struct {
		Status  int
		Message string
	}{Status: status, Message: message})
}

// NotFound renders the 404 page.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has(DataParam) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
		return
	}
	rd.renderStatic(w, r, http.StatusNotFound, "page.not-found", []MetaTag{{Title: "404 Not Found"}}, nil)
}

func (rd *Renderer) renderStatic(w http.ResponseWriter, r *http.Request, status int, name string, meta []MetaTag, data any) {
	view := rd.view(bridge.FromContext(r.Context()), "", nil)
	view.Meta = meta
	body, err := rd.execute(name, data)
	if err != nil {
		logging.Error("Failed to render %s: %v", name, err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	view.Body = body

	var buf bytes.Buffer
	if err := rd.templates.ExecuteTemplate(&buf, "document.start", view); err != nil {
		logging.Error("Failed to render %s: %v", name, err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	if err := rd.templates.ExecuteTemplate(&buf, "document.end", view); err != nil {
		logging.Error("Failed to render %s: %v", name, err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (rd *Renderer) view(lc bridge.LoadContext, routeID string, data Data) View {
	return View{
		RouteID:        routeID,
		Data:           data,
		Context:        lc,
		Stylesheets:    rd.opts.Stylesheets,
		Scripts:        rd.opts.Scripts,
		LiveReload:     rd.opts.LiveReloadPath != "",
		LiveReloadPath: rd.opts.LiveReloadPath,
	}
}

func (rd *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := rd.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // output of html/template
}

// writeJSON writes v with the given status. The body carries no trailing
// newline.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.Error("Failed to encode JSON response: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Debug("Failed to write JSON response: %v", err)
	}
}

func flush(w http.ResponseWriter) {
	if err := http.NewResponseController(w).Flush(); err != nil {
		logging.Debug("Response does not support flushing: %v", err)
	}
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}
