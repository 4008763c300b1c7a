package message

// faultCatalog entries follow the semi-standard XML-RPC/JSON-RPC fault
// code ranges the pack's pastebt-xmlrpc server.go already establishes
// for this wire protocol (errNotWellFormed = -32700, errUnknownMethod =
// -32601, errInvalidParams = -32602, errInternal = -32603); the
// implementation-defined multicall sub-faults and transport faults use
// the neighboring -32000..-32099 "server error" range that convention
// reserves for extensions.
var faultCatalog = map[string]struct {
	Code    int
	Message string
}{
	"unknown_method":           {-32601, "Unknown method"},
	"invalid_request":          {-32700, "Invalid request"},
	"incorrect_params":         {-32602, "Incorrect parameters"},
	"introspect_unknown":       {-32601, "Unknown method"},
	"server_error":             {-32603, "Server error"},
	"server_decompress_fail":   {-32001, "Could not decompress request body"},
	"server_cannot_decompress": {-32002, "Server cannot decompress this Content-Encoding"},
	"notstruct":                {-32010, "multicall: call is not a struct"},
	"nomethod":                 {-32011, "multicall: call has no methodName member"},
	"notstring":                {-32012, "multicall: methodName member is not a string"},
	"notarray":                 {-32013, "multicall: params member is not an array"},
	"noparams":                 {-32014, "multicall: call has no params member"},
	"recursion":                {-32015, "recursive system.multicall is forbidden"},
}

// NewFault builds a Fault from a symbolic fault name, taking the code
// from the catalog rather than building codes ad hoc. The message is the
// catalog's default when detail is empty; otherwise detail replaces the
// default message (it is not appended to it).
func NewFault(symbol, detail string) *Fault {
	entry, ok := faultCatalog[symbol]
	if !ok {
		entry.Code = -32099
		entry.Message = "Unspecified server error"
	}
	msg := entry.Message
	if detail != "" {
		msg = detail
	}
	return &Fault{Code: entry.Code, Message: msg}
}
