package parser

import (
	"testing"

	"github.com/entidb/entidb/internal/codec"
)

func TestParseRejectsNonDotCommands(t *testing.T) {
	if _, err := Parse("put foo bar"); err == nil {
		t.Fatal("expected an error for a non-dot command")
	}
}

func TestParseSplitsArgs(t *testing.T) {
	cmd, err := Parse(".put abc raw:\"hello world\"")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != ".put" {
		t.Fatalf("expected .put, got %s", cmd.Name)
	}
	if len(cmd.Args) != 2 {
		t.Fatalf("expected 2 args, got %v", cmd.Args)
	}
}

func TestDecodePayloadRaw(t *testing.T) {
	v, err := DecodePayload(`raw:"hello"`)
	if err != nil {
		t.Fatal(err)
	}
	if v.Text != "hello" {
		t.Fatalf("expected hello, got %q", v.Text)
	}
}

func TestDecodePayloadHex(t *testing.T) {
	v, err := DecodePayload("hex:deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Bytes) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(v.Bytes))
	}
}

func TestDecodePayloadJSON(t *testing.T) {
	v, err := DecodePayload(`json:{"a":1,"b":[true,null]}`)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != codec.KindMap {
		t.Fatalf("expected a map value, got kind %v", v.Kind)
	}
}

func TestDecodePayloadRejectsUnknownPrefix(t *testing.T) {
	if _, err := DecodePayload("xml:<a/>"); err == nil {
		t.Fatal("expected an error for an unrecognized prefix")
	}
}
