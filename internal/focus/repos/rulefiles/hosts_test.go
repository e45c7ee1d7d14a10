package rulefiles

import (
	"bytes"
	"reflect"
	"testing"

	"focusgate/internal/focus/common/log"
)

func TestParseHostsFile_Basics(t *testing.T) {
	input := `
# hosts-format block list
127.0.0.1 localhost
0.0.0.0 Ads.Example.com tracker.example.com  # inline comment
0.0.0.0 ads.example.com
::1 ip6-localhost ip6-loopback
0.0.0.0 *.wild.example.com .dotted.example
0.0.0.0
`

	got, err := ParseHostsFile(bytes.NewBufferString(input), "test-source", log.NewNoopLogger())
	if err != nil {
		t.Fatalf("ParseHostsFile returned error: %v", err)
	}

	want := []string{"ads.example.com", "tracker.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("patterns = %#v, want %#v", got, want)
	}
}

func TestParseHostsFile_Empty(t *testing.T) {
	got, err := ParseHostsFile(bytes.NewBufferString("# nothing\n"), "s", log.NewNoopLogger())
	if err != nil {
		t.Fatalf("ParseHostsFile returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 patterns, got %d", len(got))
	}
}

func TestParseHostsFile_MultipleHostnamesPerLine(t *testing.T) {
	input := "0.0.0.0 a.example b.example c.example\n"
	got, err := ParseHostsFile(bytes.NewBufferString(input), "s", log.NewNoopLogger())
	if err != nil {
		t.Fatalf("ParseHostsFile returned error: %v", err)
	}
	want := []string{"a.example", "b.example", "c.example"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("patterns = %#v, want %#v", got, want)
	}
}

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"Example.COM", "example.com", true},
		{"*.sub.example.com", "sub.example.com", true},
		{".example.org", "example.org", true},
		{"reddit.com/r/Gaming", "reddit.com/r/gaming", true},
		{"", "", false},
		{"   ", "", false},
		{"/path/only", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizePattern(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("normalizePattern(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}
