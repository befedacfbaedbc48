package page

import (
	"errors"
	"fmt"
	"net/http"

	"page-server/internal/bridge"
	"page-server/internal/session"
)

// Data is what a loader hands to its template.
type Data map[string]any

// Args is passed to loaders and actions.
type Args struct {
	Request *http.Request
	Context bridge.LoadContext
	Params  map[string]string
	// Session is nil when the session middleware is not installed.
	Session *session.Session
}

// LoaderFunc produces the data for a page before it renders.
type LoaderFunc func(Args) (Data, error)

// ActionFunc handles a form submission. Its result is encoded as JSON.
type ActionFunc func(Args) (any, error)

// MetaTag is rendered into the document head. A non-empty Title becomes the
// <title> element; otherwise a <meta name content> tag is written.
type MetaTag struct {
	Title   string
	Name    string
	Content string
}

// Route is one entry of the route table.
type Route struct {
	// ID identifies the route in ?_data requests, e.g. "routes/_index".
	ID string
	// Pattern is a gorilla/mux path template.
	Pattern string
	// Template is the html/template name rendered into the layout body.
	Template string
	Meta     func(Data) []MetaTag
	Loader   LoaderFunc
	Action   ActionFunc
}

// StatusError carries an HTTP status out of a loader or action.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Error returns an error that is answered with the given status.
func Error(status int, message string) error {
	return &StatusError{Status: status, Message: message}
}

// statusOf maps an error to the status and message shown to clients.
// Unexpected errors never leak their text.
func statusOf(err error) (int, string) {
	var pe *StatusError
	if errors.As(err, &pe) {
		return pe.Status, pe.Message
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
