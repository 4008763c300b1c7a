// Package transport implements HTTP-level content negotiation for the
// XML-RPC engine (C4 in SPEC_FULL.md): request decompression, response
// charset selection, and response compression.
//
// It keeps BX-D-mini-RPC/transport's name and its role — "negotiate what
// goes over the wire" — but the wire changed from a pooled TCP connection
// to a single HTTP request/response, so the package's content is new.
package transport

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/glensc/xmlrpc-go/charset"
	"github.com/glensc/xmlrpc-go/message"
)

// CharsetPolicy selects how the response charset is chosen.
type CharsetPolicy int

const (
	// Auto walks the server's preference list against the client's
	// Accept-Charset header.
	Auto CharsetPolicy = iota
	// Default leaves the response unlabeled (no charset negotiation).
	Default
	// Fixed pins the response to a specific charset regardless of what
	// the client advertises.
	Fixed
)

// Options configures negotiation for one server instance.
type Options struct {
	AcceptedCompression []string // subset of {"gzip", "deflate"}
	CompressResponse    bool
	CharsetPolicy       CharsetPolicy
	FixedCharset        string // used when CharsetPolicy == Fixed
}

// preferenceOrder is the server's internal-then-standard charset
// preference list consulted under Auto, per SPEC_FULL.md §4.4.
var preferenceOrder = []string{charset.UTF8, charset.ISO88591, charset.USASCII}

// DecompressRequest inflates req's body if Content-Encoding names an
// accepted compression, per SPEC_FULL.md §4.4 step 1. Returns the
// (possibly unchanged) body, or a fault if decompression fails or the
// encoding isn't accepted.
func DecompressRequest(opts Options, header http.Header, body []byte) ([]byte, *message.Fault) {
	enc := strings.ToLower(strings.TrimSpace(header.Get("Content-Encoding")))
	enc = strings.TrimPrefix(enc, "x-")
	if enc == "" {
		return body, nil
	}
	if !contains(opts.AcceptedCompression, enc) {
		return nil, message.NewFault("server_cannot_decompress", "")
	}
	switch enc {
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, message.NewFault("server_decompress_fail", "")
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, message.NewFault("server_decompress_fail", "")
		}
		return out, nil
	case "deflate":
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, message.NewFault("server_decompress_fail", "")
		}
		return out, nil
	default:
		return nil, message.NewFault("server_cannot_decompress", "")
	}
}

// ChooseResponseCharset implements SPEC_FULL.md §4.4 step 2: Fixed uses
// opts.FixedCharset, Default leaves the response unlabeled, and Auto
// walks preferenceOrder against the client's Accept-Charset header.
func ChooseResponseCharset(opts Options, acceptCharset string) string {
	switch opts.CharsetPolicy {
	case Fixed:
		return opts.FixedCharset
	case Default:
		return ""
	default:
		return chooseAuto(acceptCharset)
	}
}

func chooseAuto(acceptCharset string) string {
	if acceptCharset == "" {
		return ""
	}
	var accepted []string
	for _, part := range strings.Split(acceptCharset, ",") {
		accepted = append(accepted, strings.ToUpper(strings.TrimSpace(part)))
	}
	for _, candidate := range preferenceOrder {
		for _, a := range accepted {
			if strings.HasPrefix(a, strings.ToUpper(candidate)) {
				return candidate
			}
		}
	}
	return ""
}

// ChooseResponseEncoding implements SPEC_FULL.md §4.4 step 3: gzip is
// preferred over deflate, compression is only chosen when the server
// enabled CompressResponse and the client advertises support for it.
func ChooseResponseEncoding(opts Options, acceptEncoding string) string {
	if !opts.CompressResponse {
		return ""
	}
	lower := strings.ToLower(acceptEncoding)
	if strings.Contains(lower, "gzip") {
		return "gzip"
	}
	if strings.Contains(lower, "deflate") {
		return "deflate"
	}
	return ""
}

// CompressResponse compresses body with encoding ("gzip" or "deflate"),
// returning the compressed bytes.
func CompressResponse(body []byte, encoding string) ([]byte, error) {
	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case "deflate":
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("transport: unsupported response encoding %q", encoding)
	}
	return buf.Bytes(), nil
}

// WriteResponseHeaders sets Content-Type, Vary, Content-Encoding, and
// (when the caller isn't already compressing on the hosting layer's
// behalf) Content-Length, per SPEC_FULL.md §4.4 step 4.
func WriteResponseHeaders(header http.Header, respCharset, contentEncoding string, bodyLen int, hostingLayerCompresses bool) {
	contentType := "text/xml"
	if respCharset != "" {
		contentType += "; charset=" + respCharset
	}
	header.Set("Content-Type", contentType)

	vary := "Accept-Charset"
	if contentEncoding != "" {
		vary += ", Accept-Encoding"
	}
	header.Set("Vary", vary)

	if contentEncoding != "" {
		header.Set("Content-Encoding", contentEncoding)
	}
	if !hostingLayerCompresses {
		header.Set("Content-Length", strconv.Itoa(bodyLen))
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
