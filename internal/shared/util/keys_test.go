package util

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSafeFileName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "cv.pdf", want: "cv.pdf"},
		{in: "  my cv.docx ", want: "my cv.docx"},
		{in: "C:\\Users\\me\\cv.txt", want: "cv.txt"},
		{in: "uploads/cv\x00.pdf", want: "cv.pdf"},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "dir/", wantErr: true},
	}
	for _, tc := range cases {
		got, err := SafeFileName(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("SafeFileName(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("SafeFileName(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestSafeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SafeFileName(strings.Repeat("a", 300) + ".pdf")
	if err != nil {
		t.Fatalf("SafeFileName: %v", err)
	}
	if utf8.RuneCountInString(got) != MaxFileNameLength || !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("unexpected truncation %q (%d)", got, len(got))
	}
}

func TestOwnerKey(t *testing.T) {
	got := OwnerKey("42")
	if got != OwnerKey("42") || got == OwnerKey("43") {
		t.Fatalf("expected stable per-owner key, got %s", got)
	}
	if len(got) != 32 || strings.Trim(got, "0123456789abcdef") != "" {
		t.Fatalf("expected 32 hex characters, got %q", got)
	}
}
