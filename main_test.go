package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCanonicalizeBasePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"foo", "/foo/"},
		{"/foo", "/foo/"},
		{"foo/", "/foo/"},
		{"/foo/bar/", "/foo/bar/"},
	}
	for _, tc := range tests {
		if got := canonicalizeBasePath(tc.in); got != tc.want {
			t.Errorf("canonicalizeBasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIndex(t *testing.T) {
	mux := newMux(server{basePath: "/blobby/"}, t.TempDir())

	rec := get(t, mux, "/blobby/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /blobby/ = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`data-asset-base="/blobby/assets/"`,
		`data-module="blobby.wasm"`,
		`src="/blobby/static/index.js"`,
		`src="/blobby/assets/wasm_exec.js"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index is missing %s", want)
		}
	}

	if rec := get(t, mux, "/blobby/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET /blobby/nope = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStaticFiles(t *testing.T) {
	mux := newMux(server{basePath: "/"}, t.TempDir())
	for _, path := range []string{"/static/index.js", "/static/style.css"} {
		if rec := get(t, mux, path, nil); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestAssets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blobby.wasm", "game")
	mux := newMux(server{basePath: "/"}, dir)

	rec := get(t, mux, "/assets/blobby.wasm", nil)
	if diff := cmp.Diff("game", rec.Body.String()); diff != "" {
		t.Errorf("asset body mismatch (-want +got):\n%s", diff)
	}
}

func TestClientWasmGzip(t *testing.T) {
	tests := []struct {
		name         string
		withGzip     bool
		acceptGzip   bool
		wantBody     string
		wantEncoding string
	}{
		{name: "gzip available and accepted", withGzip: true, acceptGzip: true, wantBody: "compressed", wantEncoding: "gzip"},
		{name: "gzip not accepted", withGzip: true, acceptGzip: false, wantBody: "plain"},
		{name: "no gzip file", withGzip: false, acceptGzip: true, wantBody: "plain"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "client.wasm", "plain")
			if tc.withGzip {
				writeFile(t, dir, "client.wasm.gz", "compressed")
			}
			header := map[string]string{}
			if tc.acceptGzip {
				header["Accept-Encoding"] = "gzip, deflate"
			}

			rec := get(t, newMux(server{basePath: "/"}, dir), "/assets/client.wasm", header)
			body, err := io.ReadAll(rec.Body)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.wantBody, string(body)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
			if got := rec.Header().Get("Content-Encoding"); got != tc.wantEncoding {
				t.Errorf("Content-Encoding = %q, want %q", got, tc.wantEncoding)
			}
		})
	}
}

func TestLogRequestRecordsStatus(t *testing.T) {
	h := logRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	if rec := get(t, h, "/", nil); rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
