// Package daemon hosts background queue processing and the HTTP API.
//
// A file lock under the log directory enforces a single daemon instance per
// machine. Submissions, job lookups, cancellation, queue listings, and
// dependency health are served over a small JSON API bound to the configured
// address.
package daemon
