// Package charset implements the XML-RPC server's character-set helper
// (C3 in SPEC_FULL.md): guessing the charset of an inbound request,
// transcoding between the three charsets the engine guarantees support
// for, and entity-encoding text for a chosen output charset.
//
// It mirrors the approach used by the pack's mdzio-go-hmccu XML-RPC
// handler: golang.org/x/net/html/charset for label lookup and
// golang.org/x/text/encoding for the actual byte transcoding.
package charset

import (
	"errors"
	"fmt"
	"mime"
	"regexp"
	"strings"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// The three charsets the engine is guaranteed to support, per §6 of
// SPEC_FULL.md's configuration surface.
const (
	UTF8      = "UTF-8"
	ISO88591  = "ISO-8859-1"
	USASCII   = "US-ASCII"
	unlabeled = ""
)

// ErrUnsupportedCharset is returned when no transcoder is available for a
// requested charset pair.
var ErrUnsupportedCharset = errors.New("charset: unsupported charset")

var aliases = map[string]string{
	"UTF8":       UTF8,
	"UTF-8":      UTF8,
	"ISO8859-1":  ISO88591,
	"ISO-8859-1": ISO88591,
	"LATIN1":     ISO88591,
	"ASCII":      USASCII,
	"US-ASCII":   USASCII,
}

// Normalize canonicalizes a charset label to one of the engine's known
// names, or returns the uppercased input unchanged if unrecognized.
func Normalize(name string) string {
	u := strings.ToUpper(strings.TrimSpace(name))
	if n, ok := aliases[u]; ok {
		return n
	}
	return u
}

var xmlDeclEncoding = regexp.MustCompile(`(?i)<\?xml[^>]*\sencoding\s*=\s*["']([^"']+)["']`)

// GuessEncoding determines the advisory source charset of a request body,
// consulting in order: the Content-Type header's charset parameter, the
// XML declaration's encoding attribute, a BOM sniff, and finally
// defaulting to UTF-8.
func GuessEncoding(contentType string, body []byte) string {
	if cs := fromContentType(contentType); cs != "" {
		return cs
	}
	if cs := fromXMLDecl(body); cs != "" {
		return cs
	}
	if cs := fromBOM(body); cs != "" {
		return cs
	}
	return UTF8
}

func fromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if cs, ok := params["charset"]; ok && cs != "" {
		return Normalize(cs)
	}
	return ""
}

func fromXMLDecl(body []byte) string {
	prefix := body
	if len(prefix) > 256 {
		prefix = prefix[:256]
	}
	m := xmlDeclEncoding.FindSubmatch(prefix)
	if m == nil {
		return ""
	}
	return Normalize(string(m[1]))
}

func fromBOM(body []byte) string {
	switch {
	case hasPrefix(body, 0xEF, 0xBB, 0xBF):
		return UTF8
	case hasPrefix(body, 0xFE, 0xFF):
		return "UTF-16BE"
	case hasPrefix(body, 0xFF, 0xFE):
		return "UTF-16LE"
	}
	return ""
}

func hasPrefix(body []byte, bytes ...byte) bool {
	if len(body) < len(bytes) {
		return false
	}
	for i, b := range bytes {
		if body[i] != b {
			return false
		}
	}
	return true
}

// Transcode converts data from one charset to another. UTF-8, ISO-8859-1
// and US-ASCII are always supported; other labels are resolved via
// golang.org/x/net/html/charset's WHATWG label table, the same lookup the
// pack's mdzio-go-hmccu handler relies on for its CharsetReader.
func Transcode(data []byte, from, to string) ([]byte, error) {
	from, to = Normalize(from), Normalize(to)
	if from == to || from == unlabeled {
		return data, nil
	}

	utf8Bytes := data
	if from != UTF8 {
		dec, err := decoderFor(from)
		if err != nil {
			return nil, err
		}
		utf8Bytes, _, err = transform.Bytes(dec, data)
		if err != nil {
			return nil, fmt.Errorf("charset: decode from %s: %w", from, err)
		}
	}
	if to == UTF8 {
		return utf8Bytes, nil
	}
	enc, err := encoderFor(to)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(enc, utf8Bytes)
	if err != nil {
		return nil, fmt.Errorf("charset: encode to %s: %w", to, err)
	}
	return out, nil
}

// codecFor resolves an engine charset name to its encoding.Encoding.
// ISO-8859-1 and US-ASCII both go through charmap.ISO8859_1 directly, the
// same codec the pack's mdzio-go-hmccu handler wires up with
// charmap.ISO8859_1.NewEncoder() — ISO-8859-1 is a strict superset of
// US-ASCII's code points, so EncodeEntities' representable check is what
// actually keeps US-ASCII output within 7 bits, not the codec itself.
// Any other label falls back to golang.org/x/net/html/charset's WHATWG
// lookup table.
func codecFor(name string) (encoding.Encoding, error) {
	switch name {
	case ISO88591, USASCII:
		return charmap.ISO8859_1, nil
	}
	enc, _ := htmlcharset.Lookup(strings.ToLower(name))
	if enc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCharset, name)
	}
	return enc, nil
}

func decoderFor(name string) (transform.Transformer, error) {
	enc, err := codecFor(name)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder(), nil
}

func encoderFor(name string) (transform.Transformer, error) {
	enc, err := codecFor(name)
	if err != nil {
		return nil, err
	}
	return enc.NewEncoder(), nil
}

// representable reports whether rune r has a direct code point in
// charset, without going through an encoder (faster, and lets
// EncodeEntities decide what needs a numeric reference before paying for
// transcoding).
func representable(r rune, cs string) bool {
	switch Normalize(cs) {
	case USASCII:
		return r < 0x80
	case ISO88591:
		return r <= 0xFF
	default: // UTF-8 and anything else the engine doesn't specially know
		return true
	}
}

// EncodeEntities transcodes text from fromCharset to toCharset and
// entity-escapes it for embedding in an XML document encoded in
// toCharset: '&', '<', '>', '\'' and '"' always become named entities,
// and any code point not representable in toCharset becomes a numeric
// character reference (&#NNN;) rather than being transcoded, satisfying
// P6 in SPEC_FULL.md.
func EncodeEntities(text, fromCharset, toCharset string) (string, error) {
	utf8Text := text
	if Normalize(fromCharset) != UTF8 && fromCharset != unlabeled {
		b, err := Transcode([]byte(text), fromCharset, UTF8)
		if err != nil {
			return "", err
		}
		utf8Text = string(b)
	}

	var sb strings.Builder
	for _, r := range utf8Text {
		switch r {
		case '&':
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '\'':
			sb.WriteString("&apos;")
		case '"':
			sb.WriteString("&quot;")
		default:
			if representable(r, toCharset) {
				sb.WriteRune(r)
			} else {
				fmt.Fprintf(&sb, "&#%d;", r)
			}
		}
	}

	out, err := Transcode([]byte(sb.String()), UTF8, toCharset)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
