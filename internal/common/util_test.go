package common

import (
	"strings"
	"testing"
)

func TestRandomString_LengthAndCharset(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		charset string
	}{
		{"api key", 70, Alphanumeric},
		{"calc key", 50, LowerLetters + UpperLetters + Digits},
		{"session token", 256, Alphanumeric},
		{"digits only", 12, Digits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := RandomString(tt.n, tt.charset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(s) != tt.n {
				t.Fatalf("expected length %d, got %d", tt.n, len(s))
			}
			for _, c := range s {
				if !strings.ContainsRune(tt.charset, c) {
					t.Fatalf("character %q outside charset", c)
				}
			}
		})
	}
}

func TestRandomString_Degenerate(t *testing.T) {
	if s, err := RandomString(0, Alphanumeric); err != nil || s != "" {
		t.Fatalf("n=0: got (%q, %v)", s, err)
	}
	if s, err := RandomString(10, ""); err != nil || s != "" {
		t.Fatalf("empty charset: got (%q, %v)", s, err)
	}
}

func TestRandomString_EntropyHint(t *testing.T) {
	a, _ := RandomString(70, Alphanumeric)
	b, _ := RandomString(70, Alphanumeric)
	if a == b {
		t.Logf("warning: two RandomString(70) results are identical; extremely unlikely")
	}
}

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
