package net

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path == "/gone" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if err := Probe(context.Background(), srv.URL+"/"); err != nil {
		t.Errorf("Probe(ok) = %v", err)
	}
	if err := Probe(context.Background(), srv.URL+"/gone"); err == nil {
		t.Error("Probe(404) should fail")
	}
}

func TestProbe_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Probe(ctx, srv.URL); err == nil {
		t.Error("Probe with a cancelled context should fail")
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"http://localhost:8080/", "images/a.png", "http://localhost:8080/images/a.png"},
		{"http://localhost:8080/game/", "../x.js", "http://localhost:8080/x.js"},
		{"http://localhost:8080/", "https://cdn.example.com/a.js", "https://cdn.example.com/a.js"},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.ref); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func TestIsNetworkURL(t *testing.T) {
	for s, want := range map[string]bool{
		"http://localhost:8080/": true,
		"https://example.com":    true,
		"/":                      false,
		"file:///tmp/x.html":     false,
	} {
		if got := IsNetworkURL(s); got != want {
			t.Errorf("IsNetworkURL(%q) = %v, want %v", s, got, want)
		}
	}
}
