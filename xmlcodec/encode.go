package xmlcodec

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/glensc/xmlrpc-go/charset"
	"github.com/glensc/xmlrpc-go/message"
	"github.com/glensc/xmlrpc-go/value"
)

// Encoder serializes XML-RPC responses back to wire form.
type Encoder struct {
	// NilExtension enables emitting <nil/> for nil scalars. Must match
	// the Decoder setting the request was parsed with, or a well-behaved
	// client will reject the response.
	NilExtension bool
	// TargetCharset is the charset the emitted document is declared as
	// (its XML prologue's encoding= attribute). Text content — string
	// scalars, struct member names, method names — is transcoded and
	// entity-escaped for this charset via charset.EncodeEntities so a
	// code point the charset can't represent is never written as a raw
	// byte; it becomes a numeric character reference instead (§4.2, P6).
	// Empty means UTF-8.
	TargetCharset string
}

func (e *Encoder) targetCharset() string {
	if e.TargetCharset == "" {
		return charset.UTF8
	}
	return e.TargetCharset
}

// EncodeResponse renders a message.Response as a complete
// <methodResponse> document (without the XML prologue — callers that
// need one, e.g. server.Driver after choosing a charset, prepend it
// themselves so the declared encoding and the prologue's encoding=
// attribute always agree).
func (e *Encoder) EncodeResponse(resp *message.Response) (string, error) {
	var sb strings.Builder
	sb.WriteString("<methodResponse>")
	if resp.IsFault() {
		sb.WriteString("<fault><value>")
		faultValue := value.NewStruct()
		faultValue.SetMember("faultCode", value.NewInt(int32(resp.Fault.Code)))
		faultValue.SetMember("faultString", value.NewString(resp.Fault.Message))
		if err := e.encodeValue(&sb, faultValue); err != nil {
			return "", err
		}
		sb.WriteString("</value></fault>")
	} else {
		sb.WriteString("<params><param><value>")
		if err := e.encodeValue(&sb, resp.Value); err != nil {
			return "", err
		}
		sb.WriteString("</value></param></params>")
	}
	sb.WriteString("</methodResponse>")
	return sb.String(), nil
}

// EncodeRequest renders a message.Request as a complete <methodCall>
// document. The server does not use it (system.multicall dispatches its
// sub-calls as already-parsed Requests); the codec's round-trip test does.
func (e *Encoder) EncodeRequest(req *message.Request) (string, error) {
	var sb strings.Builder
	sb.WriteString("<methodCall><methodName>")
	name, err := e.escapeForTarget(req.Method)
	if err != nil {
		return "", err
	}
	sb.WriteString(name)
	sb.WriteString("</methodName><params>")
	for _, p := range req.Params {
		sb.WriteString("<param><value>")
		if err := e.encodeValue(&sb, p); err != nil {
			return "", err
		}
		sb.WriteString("</value></param>")
	}
	sb.WriteString("</params></methodCall>")
	return sb.String(), nil
}

func (e *Encoder) encodeValue(sb *strings.Builder, v *value.Value) error {
	if v == nil {
		return fmt.Errorf("xmlcodec: cannot encode nil *value.Value")
	}
	switch v.Kind() {
	case value.KindArray:
		sb.WriteString("<array><data>")
		for _, el := range v.Elements() {
			sb.WriteString("<value>")
			if err := e.encodeValue(sb, el); err != nil {
				return err
			}
			sb.WriteString("</value>")
		}
		sb.WriteString("</data></array>")
		return nil
	case value.KindStruct:
		sb.WriteString("<struct>")
		for _, k := range v.StructKeys() {
			member, _ := v.StructGet(k)
			name, err := e.escapeForTarget(k)
			if err != nil {
				return err
			}
			sb.WriteString("<member><name>")
			sb.WriteString(name)
			sb.WriteString("</name><value>")
			if err := e.encodeValue(sb, member); err != nil {
				return err
			}
			sb.WriteString("</value></member>")
		}
		sb.WriteString("</struct>")
		return nil
	}

	if v.IsNil() {
		if !e.NilExtension {
			return fmt.Errorf("xmlcodec: value is nil but NilExtension is disabled")
		}
		sb.WriteString("<nil/>")
		return nil
	}

	switch v.Tag() {
	case value.TagInt:
		i, _ := v.Int()
		fmt.Fprintf(sb, "<int>%d</int>", i)
	case value.TagBoolean:
		b, _ := v.Bool()
		if b {
			sb.WriteString("<boolean>1</boolean>")
		} else {
			sb.WriteString("<boolean>0</boolean>")
		}
	case value.TagString:
		s, _ := v.Str()
		text, err := e.escapeForTarget(s)
		if err != nil {
			return err
		}
		sb.WriteString("<string>")
		sb.WriteString(text)
		sb.WriteString("</string>")
	case value.TagDouble:
		d, _ := v.Double()
		sb.WriteString("<double>")
		sb.WriteString(strconv.FormatFloat(d, 'g', -1, 64))
		sb.WriteString("</double>")
	case value.TagDateTime:
		dt, _ := v.DateTime()
		sb.WriteString("<dateTime.iso8601>")
		sb.WriteString(dt)
		sb.WriteString("</dateTime.iso8601>")
	case value.TagBase64:
		b, _ := v.Base64()
		sb.WriteString("<base64>")
		sb.WriteString(base64.StdEncoding.EncodeToString(b))
		sb.WriteString("</base64>")
	default:
		return fmt.Errorf("xmlcodec: cannot encode scalar tag %s", v.Tag())
	}
	return nil
}

// escapeForTarget entity-escapes and transcodes s for e.targetCharset(),
// so the bytes this writes into the builder are already in the declared
// output charset — no further blind transcoding of the assembled document
// is needed or safe, since a later pass can't tell entity-escaped text
// from structural markup.
func (e *Encoder) escapeForTarget(s string) (string, error) {
	return charset.EncodeEntities(s, charset.UTF8, e.targetCharset())
}
