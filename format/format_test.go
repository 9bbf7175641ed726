package format

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/speakeasy-api/schemafaker/random"
)

func TestBuiltinFormats(t *testing.T) {
	tests := []struct {
		name  string
		check func(string) bool
	}{
		{"date-time", func(s string) bool { _, err := time.Parse(time.RFC3339, s); return err == nil }},
		{"date", func(s string) bool { _, err := time.Parse("2006-01-02", s); return err == nil }},
		{"time", func(s string) bool { _, err := time.Parse("15:04:05Z07:00", s); return err == nil }},
		{"ipv4", func(s string) bool { ip := net.ParseIP(s); return ip != nil && ip.To4() != nil }},
		{"ipv6", func(s string) bool { ip := net.ParseIP(s); return ip != nil && strings.Contains(s, ":") }},
		{"email", regexp.MustCompile(`^[a-z][a-z0-9._-]+@[a-z0-9-]+\.[a-z]+$`).MatchString},
		{"hostname", regexp.MustCompile(`^[a-z][a-z0-9-]+\.[a-z]+$`).MatchString},
		{"uri", func(s string) bool { u, err := url.Parse(s); return err == nil && u.IsAbs() }},
		{"uuid", func(s string) bool { _, err := uuid.Parse(s); return err == nil }},
		{"slug", regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`).MatchString},
		{"json-pointer", regexp.MustCompile(`^(/[^/]*)+$`).MatchString},
		{"relative-json-pointer", regexp.MustCompile(`^\d+(#|(/[^/]*)+)$`).MatchString},
		{"duration", regexp.MustCompile(`^P(\d+D)?T\d+H\d+M\d+S$`).MatchString},
		{"regex", func(s string) bool { _, err := regexp.Compile(s); return err == nil }},
		{"idn-hostname", func(s string) bool { return strings.Contains(s, ".") && utf8.ValidString(s) }},
	}

	reg := NewRegistry()
	r := random.NewSeeded(21)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, known := reg.Lookup(tt.name)
			if !known || fn == nil {
				t.Fatalf("format %q not registered", tt.name)
			}
			for i := 0; i < 25; i++ {
				v, err := fn(r, map[string]any{})
				if err != nil {
					t.Fatalf("generate: %v", err)
				}
				s, ok := v.(string)
				if !ok {
					t.Fatalf("expected string, got %T", v)
				}
				if !tt.check(s) {
					t.Fatalf("invalid %s value %q", tt.name, s)
				}
			}
		})
	}
}

func TestDateBoundsFromSchema(t *testing.T) {
	r := random.NewSeeded(4)
	schema := map[string]any{"formatMinimum": "2020-01-01", "formatMaximum": "2020-01-31"}
	for i := 0; i < 50; i++ {
		v, _ := date(r, schema)
		s := v.(string)
		if !strings.HasPrefix(s, "2020-01-") {
			t.Fatalf("date %q outside bounds", s)
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("color", func(r *random.Rand, _ map[string]any) (any, error) { return "red", nil })
	reg.Register("ipv4", nil)

	if fn, known := reg.Lookup("color"); !known || fn == nil {
		t.Fatal("custom format missing")
	}
	if fn, known := reg.Lookup("ipv4"); !known || fn != nil {
		t.Fatal("ipv4 should be known but unsupported")
	}
	if _, known := reg.Lookup("nope"); known {
		t.Fatal("unexpected format")
	}

	clone := reg.Clone()
	clone.Unregister("color")
	if _, known := reg.Lookup("color"); !known {
		t.Fatal("clone shares state with original")
	}

	names := reg.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestClampDate(t *testing.T) {
	tests := []struct {
		format, in, want string
	}{
		{"date", "2021-13-45", "2021-12-31"},
		{"date", "2023-02-30", "2023-02-28"},
		{"date-time", "2024-02-30T25:61:99", "2024-02-29T23:59:59Z"},
		{"date-time", "1999-00-00", "1999-01-01T00:00:00Z"},
		{"time", "29:70:01", "23:59:01Z"},
		{"date", "not a date", "not a date"},
	}
	for _, tt := range tests {
		if got := ClampDate(tt.format, tt.in); got != tt.want {
			t.Errorf("ClampDate(%q, %q) = %q, want %q", tt.format, tt.in, got, tt.want)
		}
	}
}

func TestFillerBounds(t *testing.T) {
	r := random.NewSeeded(8)
	tests := []struct{ min, max int }{
		{0, 0}, {0, 5}, {10, 12}, {50, -1}, {3, 3},
	}
	for _, tt := range tests {
		for i := 0; i < 30; i++ {
			s := Filler(r, tt.min, tt.max)
			n := utf8.RuneCountInString(s)
			if n < tt.min || (tt.max >= 0 && n > tt.max) {
				t.Fatalf("Filler(%d, %d) = %q (len %d)", tt.min, tt.max, s, n)
			}
		}
	}
}
