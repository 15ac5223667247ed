// Package pixabay implements the search and download side of the pipeline
// against the Pixabay videos API.
//
// Search validates the request locally, issues one GET per page, filters hits
// to the requested duration window, and maps each hit to a Candidate using
// the configured rendition (falling back to smaller sizes). Download streams a
// clip to a ".part" sibling and renames it once complete. Both retry 429 and
// 5xx responses with exponential backoff; a failure affects only the one
// request. The API key is stripped from every error.
package pixabay
