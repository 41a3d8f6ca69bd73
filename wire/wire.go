package wire

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for any byte string that does not parse into the
// target message.
var ErrMalformed = errors.New("wire: malformed message")

// Request field numbers.
const (
	fieldRequest    protowire.Number = 1
	fieldUser       protowire.Number = 2
	fieldPassword   protowire.Number = 3
	fieldSessionKey protowire.Number = 4
	fieldData       protowire.Number = 5
)

// Response field numbers.
const (
	fieldSuccessful protowire.Number = 1
	fieldResult     protowire.Number = 2
)

// Request is one client call. Password is cleartext as presented by the
// client and must never be logged.
type Request struct {
	Request    string
	User       string
	Password   string
	SessionKey string
	Data       []byte
}

// Response is the single reply to a Request. On failure Data holds a UTF-8
// diagnostic message.
type Response struct {
	Successful bool
	Data       []byte
}

// Failure builds an unsuccessful response carrying msg.
func Failure(msg string) Response {
	return Response{Data: []byte(msg)}
}

// Success builds a successful response carrying data.
func Success(data []byte) Response {
	return Response{Successful: true, Data: data}
}

// DecodeRequest parses b. Unknown fields are skipped; a field repeated on the
// wire keeps its last value.
func DecodeRequest(b []byte) (*Request, error) {
	req := &Request{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldRequest:
			return consumeString(typ, b, &req.Request)
		case fieldUser:
			return consumeString(typ, b, &req.User)
		case fieldPassword:
			return consumeString(typ, b, &req.Password)
		case fieldSessionKey:
			return consumeString(typ, b, &req.SessionKey)
		case fieldData:
			return consumeBytes(typ, b, &req.Data)
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// EncodeRequest serializes r. Empty fields are omitted.
func EncodeRequest(r *Request) []byte {
	var b []byte
	b = appendString(b, fieldRequest, r.Request)
	b = appendString(b, fieldUser, r.User)
	b = appendString(b, fieldPassword, r.Password)
	b = appendString(b, fieldSessionKey, r.SessionKey)
	b = appendBytes(b, fieldData, r.Data)
	return b
}

// EncodeResponse serializes r. It never fails.
func EncodeResponse(r Response) []byte {
	var b []byte
	if r.Successful {
		b = protowire.AppendTag(b, fieldSuccessful, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = appendBytes(b, fieldResult, r.Data)
	return b
}

// DecodeResponse parses b.
func DecodeResponse(b []byte) (Response, error) {
	var resp Response
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldSuccessful:
			if typ != protowire.VarintType {
				return -1, nil
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			resp.Successful = protowire.DecodeBool(v)
			return n, nil
		case fieldResult:
			return consumeBytes(typ, b, &resp.Data)
		}
		return -1, nil
	})
	return resp, err
}

// fieldFunc consumes the value of one known field and returns the number of
// bytes read. A negative count with a nil error marks the field as unknown.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walk(b []byte, field fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}

// consumeBytes reads a length-delimited value. A known field number with
// another wire type is left to the caller to skip as unknown.
func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return -1, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	*dst = append([]byte(nil), v...)
	return n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	var raw []byte
	n, err := consumeBytes(typ, b, &raw)
	if err != nil || n < 0 {
		return n, err
	}
	if !utf8.Valid(raw) {
		return 0, fmt.Errorf("%w: string field is not valid UTF-8", ErrMalformed)
	}
	*dst = string(raw)
	return n, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}
