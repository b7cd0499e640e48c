package common

import (
	"encoding/base64"
	"testing"
)

// ---------- MakeRandBase64String ----------

func TestMakeRandBase64String_DecodesToSize(t *testing.T) {
	const n = 128
	s, err := MakeRandBase64String(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("string is not valid base64: %v", err)
	}
	if len(raw) != n {
		t.Fatalf("expected %d decoded bytes, got %d", n, len(raw))
	}
}

func TestMakeRandBase64String_ZeroSize(t *testing.T) {
	s, err := MakeRandBase64String(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestMakeRandBase64String_Distinct(t *testing.T) {
	a, err := MakeRandBase64String(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := MakeRandBase64String(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Fatalf("two random strings are identical: %q", a)
	}
}

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}
