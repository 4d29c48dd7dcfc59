// Package normalisers holds the document readers that turn stored bytes
// into text. The pdf package implements driven.PageRenderer.
package normalisers
