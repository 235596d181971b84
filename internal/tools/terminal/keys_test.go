package terminal

import (
	"bytes"
	"testing"
)

func TestTranslateKeysPlainText(t *testing.T) {
	got := translateKeys("hello")
	if string(got) != "hello" {
		t.Fatalf("translateKeys() = %q, want %q", got, "hello")
	}
}

func TestTranslateKeysControlChar(t *testing.T) {
	got := translateKeys("^C")
	if !bytes.Equal(got, []byte{0x03}) {
		t.Fatalf("translateKeys(^C) = %v, want [0x03]", got)
	}
}

func TestTranslateKeysSpecial(t *testing.T) {
	got := translateKeys("[UP]")
	if string(got) != "\x1b[A" {
		t.Fatalf("translateKeys([UP]) = %q, want CSI A", got)
	}
}

func TestTranslateKeysMixed(t *testing.T) {
	got := translateKeys("ls\r[UP]^C")
	want := "ls\r\x1b[A\x03"
	if string(got) != want {
		t.Fatalf("translateKeys(mixed) = %q, want %q", got, want)
	}
}

func TestTranslateKeysUnknownBracket(t *testing.T) {
	got := translateKeys("[nope]")
	if string(got) != "[nope]" {
		t.Fatalf("translateKeys(unknown bracket) = %q, want literal passthrough", got)
	}
}
