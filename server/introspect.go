package server

import (
	"context"
	"sort"

	"github.com/glensc/xmlrpc-go/message"
	"github.com/glensc/xmlrpc-go/value"
)

// registerIntrospection wires the built-in system.* suite (C6) into the
// server's system map, implemented in terms of Server.Execute itself so
// multicall's sub-calls get ordinary signature checking and dispatch for
// free — see SPEC_FULL.md §9's "Multicall recursion via same engine" note.
func (s *Server) registerIntrospection() {
	s.systemMethods["system.listMethods"] = &message.Entry{
		TypedHandler: s.systemListMethods,
		Signatures:   [][]value.Tag{{value.TagArray}},
		Doc:          "Returns an array of the methods supported by this server.",
	}
	s.systemMethods["system.methodHelp"] = &message.Entry{
		TypedHandler: s.systemMethodHelp,
		Signatures:   [][]value.Tag{{value.TagString, value.TagString}},
		Doc:          "Given the name of a method, returns its help text.",
	}
	s.systemMethods["system.methodSignature"] = &message.Entry{
		TypedHandler: s.systemMethodSignature,
		Signatures:   [][]value.Tag{{value.TagArray, value.TagString}},
		Doc:          "Given the name of a method, returns an array of its signatures.",
	}
	s.systemMethods["system.getCapabilities"] = &message.Entry{
		TypedHandler: s.systemGetCapabilities,
		Signatures:   [][]value.Tag{{value.TagStruct}},
		Doc:          "Returns a struct describing the capabilities of this server.",
	}
	s.systemMethods["system.multicall"] = &message.Entry{
		TypedHandler: s.systemMulticall,
		Signatures:   [][]value.Tag{{value.TagArray, value.TagArray}},
		Doc:          "Processes an array of calls, returning an array of results.",
	}
}

func (s *Server) systemListMethods(_ context.Context, _ *message.Request) (any, error) {
	names := make([]string, 0, len(s.userMethods)+len(s.systemMethods))
	userNames := make([]string, 0, len(s.userMethods))
	for name := range s.userMethods {
		userNames = append(userNames, name)
	}
	sort.Strings(userNames)
	names = append(names, userNames...)

	if s.opts.AllowSystemFuncs {
		sysNames := make([]string, 0, len(s.systemMethods))
		for name := range s.systemMethods {
			sysNames = append(sysNames, name)
		}
		sort.Strings(sysNames)
		names = append(names, sysNames...)
	}

	elements := make([]*value.Value, len(names))
	for i, n := range names {
		elements[i] = value.NewString(n)
	}
	return value.NewArray(elements...), nil
}

func (s *Server) systemMethodHelp(_ context.Context, req *message.Request) (any, error) {
	name, err := req.Params[0].Str()
	if err != nil {
		return nil, err
	}
	entry, ok := s.lookupForIntrospection(name)
	if !ok {
		return nil, message.NewFault("introspect_unknown", "")
	}
	// The entry's Doc is handed directly to the string tag here — a
	// historical implementation this design is informed by wraps it one
	// constructor call too far out, reading like an argument-order
	// mistake; this is the corrected form (see DESIGN.md).
	return value.NewString(entry.Doc), nil
}

func (s *Server) systemMethodSignature(_ context.Context, req *message.Request) (any, error) {
	name, err := req.Params[0].Str()
	if err != nil {
		return nil, err
	}
	entry, ok := s.lookupForIntrospection(name)
	if !ok {
		return nil, message.NewFault("introspect_unknown", "")
	}
	if len(entry.Signatures) == 0 {
		return value.NewString("undef"), nil
	}
	sigs := make([]*value.Value, len(entry.Signatures))
	for i, sig := range entry.Signatures {
		tags := make([]*value.Value, len(sig))
		for j, tag := range sig {
			tags[j] = value.NewString(tag.String())
		}
		sigs[i] = value.NewArray(tags...)
	}
	return value.NewArray(sigs...), nil
}

func (s *Server) systemGetCapabilities(_ context.Context, _ *message.Request) (any, error) {
	caps := value.NewStruct()
	caps.SetMember("xmlrpc", capabilityStruct("http://www.xmlrpc.com/spec", 1))
	caps.SetMember("system.multicall", capabilityStruct("http://www.xmlrpc.com/discuss.cgi/ht=1/start=2", 1))
	caps.SetMember("introspection", capabilityStruct("http://scripts.incutio.com/xmlrpc/introspection.html", 2))
	if s.opts.NilExtension {
		caps.SetMember("nil", capabilityStruct("http://www.ontosys.com/xmlrpc/extensions.php", 1))
	}
	return caps, nil
}

func capabilityStruct(specURL string, specVersion int32) *value.Value {
	v := value.NewStruct()
	v.SetMember("specUrl", value.NewString(specURL))
	v.SetMember("specVersion", value.NewInt(specVersion))
	return v
}

// lookupForIntrospection resolves a method name across both maps, the
// way listMethods's result set is itself the union of both.
func (s *Server) lookupForIntrospection(name string) (*message.Entry, bool) {
	if entry, ok := s.userMethods[name]; ok {
		return entry, true
	}
	if s.opts.AllowSystemFuncs {
		if entry, ok := s.systemMethods[name]; ok {
			return entry, true
		}
	}
	return nil, false
}

// systemMulticall implements the boxcar convention (SPEC_FULL.md §4.6):
// each element of the single array parameter must be a struct with
// methodName (string) and params (array) members. Violations map to
// symbolic sub-faults; a nested system.multicall is always a recursion
// fault regardless of its own well-formedness.
func (s *Server) systemMulticall(ctx context.Context, req *message.Request) (any, error) {
	calls := req.Params[0]
	results := make([]*value.Value, 0, calls.ArrayLen())

	for i := 0; i < calls.ArrayLen(); i++ {
		call, _ := calls.ArrayAt(i)
		results = append(results, s.multicallOne(ctx, call))
	}
	return value.NewArray(results...), nil
}

func (s *Server) multicallOne(ctx context.Context, call *value.Value) *value.Value {
	if call.Kind() != value.KindStruct {
		return multicallFaultValue(message.NewFault("notstruct", ""))
	}
	methodNameValue, ok := call.StructGet("methodName")
	if !ok {
		return multicallFaultValue(message.NewFault("nomethod", ""))
	}
	methodName, err := methodNameValue.Str()
	if err != nil {
		return multicallFaultValue(message.NewFault("notstring", ""))
	}
	if methodName == "system.multicall" {
		return multicallFaultValue(message.NewFault("recursion", ""))
	}
	paramsValue, ok := call.StructGet("params")
	if !ok {
		return multicallFaultValue(message.NewFault("noparams", ""))
	}
	if paramsValue.Kind() != value.KindArray {
		return multicallFaultValue(message.NewFault("notarray", ""))
	}

	subReq := &message.Request{Method: methodName, Params: paramsValue.Elements()}
	resp := s.Execute(ctx, subReq)
	if resp.IsFault() {
		return multicallFaultValue(resp.Fault)
	}
	return value.NewArray(resp.Value)
}

func multicallFaultValue(f *message.Fault) *value.Value {
	v := value.NewStruct()
	v.SetMember("faultCode", value.NewInt(int32(f.Code)))
	v.SetMember("faultString", value.NewString(f.Message))
	return v
}
