package urlutil

import "testing"

func TestJoin(t *testing.T) {
	tests := []struct {
		base string
		ref  string
		want string
	}{
		{"http://example.com/a/b", "/path", "http://example.com/path"},
		{"http://example.com/a/b", "c", "http://example.com/a/c"},
		{"http://example.com/a/b", "../c", "http://example.com/c"},
		{"http://example.com/a/b", "?q=1", "http://example.com/a/b?q=1"},
		{"http://example.com/a/b", "#frag", "http://example.com/a/b#frag"},
		{"http://example.com/a/b", "//other.org/x", "http://other.org/x"},
		{"http://example.com/a/b", "https://abs.example/", "https://abs.example/"},
		{"http://example.com/a/b", "", "http://example.com/a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := Join(tt.base, tt.ref)
			if err != nil {
				t.Fatalf("Join: %v", err)
			}
			if got != tt.want {
				t.Errorf("Join(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}

func TestJoinInvalid(t *testing.T) {
	if _, err := Join("http://example.com/", "http://[::1"); err == nil {
		t.Error("expected error for unparsable reference")
	}
}

func TestNormalize(t *testing.T) {
	n := DefaultNormalizer([]string{"utm_source"})

	tests := []struct {
		in   string
		want string
	}{
		{"HTTP://Example.COM:80/a/", "http://example.com/a"},
		{"https://example.com:443//a//b/./c/../d?b=2&a=1#top", "https://example.com/a/b/d?a=1&b=2"},
		{"http://example.com?utm_source=x&id=3", "http://example.com/?id=3"},
		{"http://example.com", "http://example.com/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := n.Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsSameHost(t *testing.T) {
	if !IsSameHost("http://Example.com/a", "http://example.com/b") {
		t.Error("hosts differing only in case should match")
	}
	if IsSameHost("http://example.com/", "http://example.org/") {
		t.Error("different hosts should not match")
	}
}
