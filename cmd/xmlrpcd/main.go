// Command xmlrpcd is a minimal demo process that wires server.Server and
// server.Driver into a real net/http listener. Socket acceptance itself
// is the one piece of the original design explicitly out of scope (the
// engine consumes an already-received body); this binary is the thin
// bootstrap layer that supplies that missing half for a runnable demo,
// in the same spirit as the teacher expecting its own caller to call
// Serve.
package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/glensc/xmlrpc-go/message"
	"github.com/glensc/xmlrpc-go/server"
	"github.com/glensc/xmlrpc-go/transport"
	"github.com/glensc/xmlrpc-go/value"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	debug := flag.Int("debug", 0, "debug level (0-3)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	svr := server.New(
		server.WithLogger(logger),
		server.WithDebug(*debug),
		server.WithHandlerTimeout(30*time.Second),
		server.WithCompressResponse(true),
		server.WithAcceptedCompression("gzip", "deflate"),
		server.WithResponseCharsetEncoding("Auto"),
	)

	registerExamples(svr)

	driver := server.NewDriver(svr, transport.Options{
		AcceptedCompression: []string{"gzip", "deflate"},
		CompressResponse:    true,
		CharsetPolicy:       transport.Auto,
	})

	logger.Info("xmlrpcd listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, driver); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// registerExamples mounts a couple of demo methods so the binary is
// useful to probe with curl/xmlrpc clients out of the box.
func registerExamples(svr *server.Server) {
	_ = svr.RegisterTyped("examples.add", func(_ context.Context, req *message.Request) (any, error) {
		a, err := req.Params[0].Int()
		if err != nil {
			return nil, err
		}
		b, err := req.Params[1].Int()
		if err != nil {
			return nil, err
		}
		return value.NewInt(a + b), nil
	}, message.WithDoc("Adds two integers."),
		message.WithSignatures([]value.Tag{value.TagInt, value.TagInt, value.TagInt}))

	_ = svr.RegisterTyped("examples.echo", func(_ context.Context, req *message.Request) (any, error) {
		return req.Params[0], nil
	}, message.WithDoc("Echoes its single argument back unchanged."),
		message.WithSignatures([]value.Tag{value.TagAny, value.TagAny}))
}
