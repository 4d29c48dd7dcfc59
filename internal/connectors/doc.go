// Package connectors fetches document bytes from where they live. The web
// package downloads over HTTP, the filesystem package reads local files and
// Router picks between them by URL scheme.
package connectors
