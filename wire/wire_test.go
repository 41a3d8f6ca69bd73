package wire

import (
	"bytes"
	"errors"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestDecodeRequestFields(t *testing.T) {
	in := &Request{
		Request:    "set_password",
		User:       "alice",
		Password:   "pw1",
		SessionKey: "key",
		Data:       []byte{0x00, 0xff},
	}

	got, err := DecodeRequest(EncodeRequest(in))
	if err != nil {
		t.Fatalf("DecodeRequest error: %v", err)
	}
	if got.Request != in.Request || got.User != in.User || got.Password != in.Password || got.SessionKey != in.SessionKey {
		t.Fatalf("decoded %+v, want %+v", got, in)
	}
	if !bytes.Equal(got.Data, in.Data) {
		t.Fatalf("data = %x, want %x", got.Data, in.Data)
	}
}

func TestDecodeEmptyIsZeroRequest(t *testing.T) {
	got, err := DecodeRequest(nil)
	if err != nil {
		t.Fatalf("DecodeRequest(nil) error: %v", err)
	}
	if got.Request != "" || got.Data != nil {
		t.Fatalf("expected zero request, got %+v", got)
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	b = protowire.AppendTag(b, 100, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")
	b = append(b, EncodeRequest(&Request{Request: "echo"})...)

	got, err := DecodeRequest(b)
	if err != nil {
		t.Fatalf("DecodeRequest error: %v", err)
	}
	if got.Request != "echo" {
		t.Fatalf("request = %q, want echo", got.Request)
	}
}

func TestDecodeLastValueWins(t *testing.T) {
	b := EncodeRequest(&Request{User: "first"})
	b = append(b, EncodeRequest(&Request{User: "second"})...)

	got, err := DecodeRequest(b)
	if err != nil {
		t.Fatalf("DecodeRequest error: %v", err)
	}
	if got.User != "second" {
		t.Fatalf("user = %q, want second", got.User)
	}
}

func TestDecodeMalformed(t *testing.T) {
	badUTF8 := protowire.AppendTag(nil, fieldUser, protowire.BytesType)
	badUTF8 = protowire.AppendBytes(badUTF8, []byte{0xff, 0xfe})

	truncated := protowire.AppendTag(nil, fieldData, protowire.BytesType)
	truncated = protowire.AppendVarint(truncated, 10)
	truncated = append(truncated, 'a', 'b')

	cases := map[string][]byte{
		"garbage":         []byte("this is not a protobuf message"),
		"zero field":      {0x00},
		"lone tag":        {0x0a},
		"bad varint":      {0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		"invalid utf8":    badUTF8,
		"truncated bytes": truncated,
		"end group":       {0x0c},
	}
	for name, in := range cases {
		if _, err := DecodeRequest(in); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestDecodeSkipsReservedRangeFieldNumbers(t *testing.T) {
	b := EncodeRequest(&Request{Request: "echo", Data: []byte("x")})
	b = protowire.AppendTag(b, protowire.FirstReservedNumber, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	b = protowire.AppendTag(b, protowire.LastReservedNumber, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("ignored"))

	got, err := DecodeRequest(b)
	if err != nil {
		t.Fatalf("DecodeRequest error: %v", err)
	}
	if got.Request != "echo" || string(got.Data) != "x" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestDecodeSkipsKnownFieldWithOtherWireType(t *testing.T) {
	got, err := DecodeRequest([]byte{0x08, 0x01})
	if err != nil {
		t.Fatalf("DecodeRequest error: %v", err)
	}
	if got.Request != "" || got.User != "" || got.Data != nil {
		t.Fatalf("expected zero request, got %+v", got)
	}

	b := protowire.AppendTag(nil, fieldUser, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)
	b = append(b, EncodeRequest(&Request{Request: "status"})...)
	got, err = DecodeRequest(b)
	if err != nil {
		t.Fatalf("DecodeRequest error: %v", err)
	}
	if got.Request != "status" || got.User != "" {
		t.Fatalf("unexpected request %+v", got)
	}

	resp, err := DecodeResponse(protowire.AppendBytes(protowire.AppendTag(nil, fieldSuccessful, protowire.BytesType), []byte("yes")))
	if err != nil {
		t.Fatalf("DecodeResponse error: %v", err)
	}
	if resp.Successful {
		t.Fatalf("mistyped successful field must be ignored, got %+v", resp)
	}
}

func TestEncodeResponse(t *testing.T) {
	resp, err := DecodeResponse(EncodeResponse(Failure("Request type not available")))
	if err != nil {
		t.Fatalf("DecodeResponse error: %v", err)
	}
	if resp.Successful || string(resp.Data) != "Request type not available" {
		t.Fatalf("unexpected response %+v", resp)
	}

	resp, err = DecodeResponse(EncodeResponse(Success([]byte("alice"))))
	if err != nil {
		t.Fatalf("DecodeResponse error: %v", err)
	}
	if !resp.Successful || string(resp.Data) != "alice" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if got := EncodeResponse(Response{}); len(got) != 0 {
		t.Fatalf("zero response should encode empty, got %x", got)
	}
}

func TestCredentials(t *testing.T) {
	in := &Credentials{Name: "alice", Password: "pw1", Permission: "ADMIN"}
	got, err := DecodeCredentials(EncodeCredentials(in))
	if err != nil {
		t.Fatalf("DecodeCredentials error: %v", err)
	}
	if *got != *in {
		t.Fatalf("decoded %+v, want %+v", got, in)
	}

	if _, err := DecodeCredentials([]byte{0x0a, 0x05, 'a'}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
