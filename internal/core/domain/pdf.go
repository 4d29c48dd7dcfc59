package domain

import "bytes"

// pdfMagic opens every PDF file. Readers tolerate up to headerWindow bytes
// of leading junk before it.
var pdfMagic = []byte("%PDF-")

const headerWindow = 1024

// LooksLikePDF reports whether data carries a PDF header near its start.
func LooksLikePDF(data []byte) bool {
	if len(data) > headerWindow {
		data = data[:headerWindow]
	}
	return bytes.Contains(data, pdfMagic)
}
