package engine

import (
	"bytes"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

const sniffSize = 1024

var metaCharset = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?\s*([a-zA-Z0-9_:.\-]+)`)

// DecodeHTML converts a response body to UTF-8. The encoding comes from a
// byte order mark, the Content-Type charset or a <meta> declaration, in that
// order. Undeclared bodies that are not valid UTF-8 are read as
// windows-1252, as browsers do.
func DecodeHTML(body []byte, contentType string) string {
	if enc, n := bomEncoding(body); enc != nil {
		if out, err := enc.NewDecoder().Bytes(body[n:]); err == nil {
			return string(out)
		}
	}

	label := contentTypeCharset(contentType)
	if label == "" {
		label = sniffCharset(body)
	}

	var enc encoding.Encoding
	if label != "" {
		if e, err := htmlindex.Get(label); err == nil {
			enc = e
		}
	}

	if enc == nil || enc == unicode.UTF8 {
		if utf8.Valid(body) {
			return string(body)
		}
		if enc == nil {
			enc = charmap.Windows1252
		} else {
			return strings.ToValidUTF8(string(body), "�")
		}
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return strings.ToValidUTF8(string(body), "�")
	}
	return string(out)
}

func bomEncoding(body []byte) (encoding.Encoding, int) {
	switch {
	case bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}):
		return unicode.UTF8, 3
	case bytes.HasPrefix(body, []byte{0xFF, 0xFE}):
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), 2
	case bytes.HasPrefix(body, []byte{0xFE, 0xFF}):
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), 2
	}
	return nil, 0
}

func contentTypeCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}

func sniffCharset(body []byte) string {
	head := body
	if len(head) > sniffSize {
		head = head[:sniffSize]
	}
	if m := metaCharset.FindSubmatch(head); m != nil {
		return strings.ToLower(string(m[1]))
	}
	return ""
}
