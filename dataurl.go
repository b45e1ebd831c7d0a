package canvascap

import (
	"encoding/base64"
	"strings"
)

const (
	dataURLScheme = "data:"
	base64Marker  = ";base64,"
)

// ParseDataURL splits a data:<mime>;base64,<payload> string into its MIME
// type and decoded payload. The MIME type is returned verbatim.
//
// Only the header is scanned; the payload goes straight to the decoder, so
// parsing stays linear in the size of a full-resolution page.
func ParseDataURL(s string) (mime string, buf []byte, err error) {
	rest, ok := strings.CutPrefix(s, dataURLScheme)
	i := strings.LastIndex(rest, base64Marker)
	if !ok || i < 1 || i+len(base64Marker) == len(rest) || strings.IndexByte(s, '\n') >= 0 {
		return "", nil, &MalformedDataURLError{Input: s}
	}
	mime, payload := rest[:i], rest[i+len(base64Marker):]
	buf, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, &MalformedDataURLError{Input: s, Err: err}
	}
	return mime, buf, nil
}
