package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/glensc/xmlrpc-go/charset"
	"github.com/glensc/xmlrpc-go/message"
	"github.com/glensc/xmlrpc-go/trace"
	"github.com/glensc/xmlrpc-go/transport"
	"github.com/glensc/xmlrpc-go/xmlcodec"
)

// MaxRequestBytes bounds the size of a request body the driver will read,
// mirroring the read-limited body in the pack's mdzio-go-hmccu handler.
const MaxRequestBytes = 10 * 1024 * 1024

// Driver orchestrates one HTTP request end to end (C7): parse headers,
// decompress, parse XML, dispatch, serialize, compress, emit. It
// implements http.Handler in the style of mdzio-go-hmccu's Handler,
// which the teacher itself has no equivalent of (it is TCP-framed, not
// HTTP-hosted).
type Driver struct {
	Server       *Server
	Decoder      xmlcodec.Decoder
	Encoder      xmlcodec.Encoder
	Transport    transport.Options
	RequestBytes int64
}

// NewDriver builds a Driver around svr with the given transport
// negotiation options.
func NewDriver(svr *Server, opts transport.Options) *Driver {
	nilExt := svr.NilExtensionEnabled()
	return &Driver{
		Server:       svr,
		Decoder:      xmlcodec.Decoder{NilExtension: nilExt},
		Encoder:      xmlcodec.Encoder{NilExtension: nilExt},
		Transport:    opts,
		RequestBytes: MaxRequestBytes,
	}
}

// Result is what Handle returns: the encoded wire bytes plus the
// in-memory Response, mirroring the teacher's handleRequest returning
// both the encoded bytes and the RPCMessage.
type Result struct {
	Body     []byte
	Response *message.Response
	Headers  http.Header
}

// Handle runs the full driver state machine:
//
//	INIT -> HEADERS_PARSED -> BODY_DECODED -> XML_PARSED
//	     -> DISPATCHED -> SERIALIZED -> COMPRESSED -> EMITTED
//
// Any stage may short-circuit straight to a fault Response; serialization,
// compression, and header construction always still run.
func (d *Driver) Handle(reqHeader http.Header, body []byte) *Result {
	logger := d.Server.logger

	sink := trace.NewSink()
	ctx := trace.WithSink(context.Background(), sink)

	// HEADERS_PARSED -> BODY_DECODED
	decompressed, fault := transport.DecompressRequest(d.Transport, reqHeader, body)
	rawRequest := body
	if fault == nil {
		rawRequest = decompressed
	}
	var resp *message.Response
	if fault != nil {
		resp = message.FaultResponse(fault)
	} else {
		// BODY_DECODED -> XML_PARSED
		srcCharset := charset.GuessEncoding(reqHeader.Get("Content-Type"), decompressed)
		utf8Body := decompressed
		if srcCharset != charset.UTF8 {
			transcoded, err := charset.Transcode(decompressed, srcCharset, charset.UTF8)
			if err != nil {
				logger.Warn("charset transcode failed", zap.String("charset", srcCharset), zap.Error(err))
				resp = message.FaultResponse(message.NewFault("invalid_request", err.Error()))
			} else {
				utf8Body = transcoded
			}
		}

		if resp == nil {
			req, err := d.Decoder.DecodeRequest(strings.NewReader(string(utf8Body)))
			if err != nil {
				logger.Warn("xml decode failed", zap.Error(err))
				resp = message.FaultResponse(message.NewFault("invalid_request", err.Error()))
			} else {
				// XML_PARSED -> DISPATCHED
				if d.Server.opts.Debug >= 3 {
					trace.WithGlobalHook(sink, func() {
						resp = d.Server.Execute(ctx, req)
					})
				} else {
					resp = d.Server.Execute(ctx, req)
				}
				logger.Debug("dispatched", zap.String("method", req.Method), zap.Bool("fault", resp.IsFault()))
			}
		}
	}

	respCharset := transport.ChooseResponseCharset(d.Transport, reqHeader.Get("Accept-Charset"))

	// DISPATCHED -> SERIALIZED
	enc := d.Encoder
	enc.TargetCharset = respCharset
	bodyXML, err := enc.EncodeResponse(resp)
	if err != nil {
		logger.Error("response encode failed", zap.Error(err))
		resp = message.FaultResponse(message.NewFault("server_error", err.Error()))
		bodyXML, _ = enc.EncodeResponse(resp)
	}

	// encodeValue already transcoded and entity-escaped every text node for
	// respCharset (see xmlcodec.Encoder.escapeForTarget), so the assembled
	// document's bytes are already correct for respCharset and must not be
	// blindly retranscoded — that would double-encode escaped entities and
	// can't distinguish content bytes from structural markup.
	prologue := xmlPrologue(respCharset)
	fullDoc := prologue + bodyXML
	if d.Server.opts.Debug >= 1 {
		fullDoc = prologue + traceComments(sink, d.Server.opts.Debug, rawRequest, respCharset) + bodyXML
	}

	outBytes := []byte(fullDoc)

	// SERIALIZED -> COMPRESSED
	encoding := transport.ChooseResponseEncoding(d.Transport, reqHeader.Get("Accept-Encoding"))
	if encoding != "" {
		compressed, err := transport.CompressResponse(outBytes, encoding)
		if err != nil {
			logger.Warn("response compression failed", zap.String("encoding", encoding), zap.Error(err))
			encoding = ""
		} else {
			outBytes = compressed
		}
	}

	// COMPRESSED -> EMITTED
	headers := http.Header{}
	transport.WriteResponseHeaders(headers, respCharset, encoding, len(outBytes), false)

	resp.RawBody = rawRequest
	resp.ContentType = headers.Get("Content-Type")

	return &Result{Body: outBytes, Response: resp, Headers: headers}
}

// ServeHTTP adapts Handle to net/http, grounded on mdzio-go-hmccu's
// Handler.ServeHTTP: read a size-limited body, run the driver, write
// headers and body. The status is always 200; a body that cannot be read
// is answered with an invalid_request fault.
func (d *Driver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := d.RequestBytes
	if limit <= 0 {
		limit = MaxRequestBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		d.Server.logger.Warn("reading request body failed", zap.Error(err))
		fault := message.FaultResponse(message.NewFault("invalid_request", "reading request body failed: "+err.Error()))
		out, _ := d.Encoder.EncodeResponse(fault)
		out = xmlPrologue("") + out
		transport.WriteResponseHeaders(w.Header(), "", "", len(out), false)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out))
		return
	}

	result := d.Handle(r.Header, body)
	for k, vs := range result.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Body)
}

func xmlPrologue(respCharset string) string {
	if respCharset == "" {
		return `<?xml version="1.0"?>` + "\n"
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="%s"?>`+"\n", respCharset)
}

// traceComments renders the Debug>=1 system-trace comment, the Debug>=2
// raw request dump, and, at Debug>=3, the captured-warnings diagnostics,
// per SPEC_FULL.md §4.8.
func traceComments(sink *trace.Sink, debug int, rawRequest []byte, respCharset string) string {
	var sb strings.Builder
	if debug >= 1 {
		encoded := base64.StdEncoding.EncodeToString([]byte(strings.Join(sink.Messages(), "\n")))
		sb.WriteString("<!-- SYSTEM DEBUG (BASE64): " + encoded + " -->\n")
	}
	if debug >= 2 {
		encoded := base64.StdEncoding.EncodeToString(rawRequest)
		sb.WriteString("<!-- REQUEST DEBUG (BASE64): " + encoded + " -->\n")
	}
	if debug >= 3 {
		warnings := sink.Warnings()
		if len(warnings) > 0 {
			text, err := charset.EncodeEntities(strings.Join(warnings, "; "), charset.UTF8, firstNonEmpty(respCharset, charset.UTF8))
			if err == nil {
				sb.WriteString("<!-- USER DEBUG: " + text + " -->\n")
			}
		}
	}
	return sb.String()
}

func firstNonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
