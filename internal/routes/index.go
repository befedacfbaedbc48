package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jonboulle/clockwork"

	"page-server/internal/logging"
	"page-server/internal/metrics"
	"page-server/internal/page"
)

const (
	// IndexID identifies the index route in ?_data requests.
	IndexID = "routes/_index"

	// IndexMessage is the greeting returned by the index loader.
	IndexMessage = "Hello World from the page loader"

	// ItemsDelay is how long the deferred item list takes to resolve.
	ItemsDelay = 2 * time.Second

	uploadField    = "file"
	lastUploadKey  = "lastUpload"
	maxUploadBytes = 32 << 20
)

// Item is one entry of the deferred list.
type Item struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

var demoItems = []Item{
	{ID: 1, Title: "Quickstart Tutorial"},
	{ID: 2, Title: "Deep Dive Tutorial"},
	{ID: 3, Title: "Reference Docs"},
}

// UploadResult is the body returned by the upload action.
type UploadResult struct {
	FileName string `json:"fileName"`
}

// Index is the demo landing page.
type Index struct {
	clock clockwork.Clock
}

// NewIndex returns the index route using clock for the item delay.
func NewIndex(clock clockwork.Clock) *Index {
	return &Index{clock: clock}
}

// Route returns the index route definition.
func (ix *Index) Route() page.Route {
	return page.Route{
		ID:       IndexID,
		Pattern:  "/",
		Template: IndexID,
		Meta:     ix.meta,
		Loader:   ix.load,
		Action:   ix.upload,
	}
}

func (ix *Index) meta(page.Data) []page.MetaTag {
	return []page.MetaTag{
		{Title: "New Page Server App"},
		{Name: "description", Content: "Welcome to page-server!"},
	}
}

func (ix *Index) load(args page.Args) (page.Data, error) {
	logging.Debug("%s %s", IndexMessage, args.Context.AppVersion)

	data := page.Data{
		"message":    IndexMessage,
		"appVersion": args.Context.AppVersion,
		"items":      page.Defer(ix.items),
	}
	if args.Session != nil {
		if names := args.Session.GetFlash(lastUploadKey); len(names) > 0 {
			data[lastUploadKey] = fmt.Sprint(names[len(names)-1])
		}
	}
	return data, nil
}

func (ix *Index) items() (any, error) {
	<-ix.clock.After(ItemsDelay)
	items := make([]Item, len(demoItems))
	copy(items, demoItems)
	return items, nil
}

// upload buffers the submitted file and answers with its name. The contents
// are only inspected for their type.
func (ix *Index) upload(args page.Args) (any, error) {
	r := args.Request
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, page.Error(http.StatusBadRequest, "expected multipart/form-data")
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("Failed to remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, page.Error(http.StatusBadRequest, "missing file field")
		}
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("Failed to close upload: %v", err)
		}
	}()

	contents, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	mtype := mimetype.Detect(contents)
	kind, _, _ := strings.Cut(mtype.String(), "/")
	metrics.UploadsTotal.WithLabelValues(kind).Inc()
	logging.Info("Received upload %q (%d bytes, %s)", header.Filename, len(contents), mtype.String())

	if args.Session != nil {
		args.Session.Flash(lastUploadKey, header.Filename)
	}
	return UploadResult{FileName: header.Filename}, nil
}
