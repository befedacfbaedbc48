// Package page renders server-side pages from a route table.
//
// A [Route] pairs a URL pattern with a loader, an optional action and an
// html/template name. GET requests run the loader and render the route
// template inside the document layout. POST requests run the action and
// answer with JSON. A GET carrying ?_data=<route id> returns the loader data
// as JSON instead of HTML.
//
// Loaders may return [Deferred] values. The renderer flushes the document
// shell with the route's placeholder first, then streams each value as it
// resolves: the template "<route template>.<data key>" is rendered into a
// hidden <template> element followed by a script that swaps it in place of
// the placeholder. Slow data therefore never delays the first byte.
package page
