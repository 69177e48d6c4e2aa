package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"embed"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/fabioarnold/blobbyvolley2/static"
)

var (
	//go:embed templates/*
	templatesFS embed.FS
	indexTmpl   = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

	port     = flag.Int("port", 80, "http port to listen on")
	useTLS   = flag.Bool("tls", false, "enable HTTPS with a self-signed certificate")
	basePath = flag.String("base_path", "", "base path to serve on, e.g. '/foo/'")
	assetDir = flag.String("assets", "assets", "directory with models, textures, blobby.wasm, client.wasm and wasm_exec.js")
)

type server struct {
	basePath string
}

type indexData struct {
	BasePath  string
	AssetBase string
	Module    string
}

func (s server) index(w http.ResponseWriter, r *http.Request) {
	// By default "/" matches any path - e.g. "/non-existent".
	// Is there a way to do this when the handler is registed?
	if r.URL.Path != s.basePath {
		// TODO: does returning 404 for "/" cause gce ingress to return 502s?
		if r.URL.Path != "/" {
			http.NotFound(w, r)
		}
		return
	}

	data := indexData{
		BasePath:  s.basePath,
		AssetBase: s.basePath + "assets/",
		Module:    "blobby.wasm",
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("rendering index: %v", err)
	}
}

// makeGzipHandler returns a HTTP HanderFunc which serves a gzipped version of
// the wasm content when the client accepts it and hasGzip is set.
func makeGzipHandler(h http.Handler, hasGzip bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !hasGzip || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "application/wasm")
		r.URL.Path += ".gz"
		if r.URL.RawPath != "" {
			r.URL.RawPath += ".gz"
		}
		h.ServeHTTP(w, r)
	}
}

func logRequest(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{
			ResponseWriter: w,
			Status:         200,
		}
		handler.ServeHTTP(sr, r)
		log.Printf("%s %s %d %s\n", r.RemoteAddr, r.Method, sr.Status, r.URL)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func canonicalizeBasePath(s string) string {
	bp := s
	if !strings.HasSuffix(bp, "/") {
		bp = bp + "/"
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return bp
}

func newMux(srv server, assetDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(srv.basePath, srv.index)

	staticHandler := http.FileServer(http.FS(static.FS))
	mux.Handle(srv.basePath+"static/", http.StripPrefix(srv.basePath+"static/", staticHandler))

	assetHandler := http.FileServer(http.Dir(assetDir))
	mux.Handle(srv.basePath+"assets/", http.StripPrefix(srv.basePath+"assets/", assetHandler))
	// If client.wasm is requested, redirect to a gzipped version.
	_, err := os.Stat(filepath.Join(assetDir, "client.wasm.gz"))
	mux.Handle(srv.basePath+"assets/client.wasm", http.StripPrefix(srv.basePath+"assets/", makeGzipHandler(assetHandler, err == nil)))
	return mux
}

func main() {
	flag.Parse()

	basePath := canonicalizeBasePath(*basePath)
	srv := server{
		basePath: basePath,
	}

	mux := newMux(srv, *assetDir)

	addr := fmt.Sprintf(":%d", *port)
	handler := logRequest(mux)

	if *useTLS {
		tlsCert, err := generateSelfSignedCert()
		if err != nil {
			log.Fatalf("Failed to generate self-signed certificate: %v", err)
		}
		srv := &http.Server{
			Addr:    addr,
			Handler: handler,
			TLSConfig: &tls.Config{
				Certificates: []tls.Certificate{tlsCert},
			},
		}
		log.Printf("Listening on https://0.0.0.0%s", addr)
		if err := srv.ListenAndServeTLS("", ""); err != nil {
			log.Println("Failed to start server", err)
			os.Exit(1)
		}
	} else {
		log.Printf("Listening on http://0.0.0.0%s", addr)
		if err := http.ListenAndServe(addr, handler); err != nil {
			log.Println("Failed to start server", err)
			os.Exit(1)
		}
	}
}

// generateSelfSignedCert creates an in-memory self-signed TLS certificate.
func generateSelfSignedCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating key: %v", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating serial number: %v", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      pkix.Name{Organization: []string{"blobbyvolley2 dev"}},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(0, 0, 0, 0), net.IPv6loopback},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("creating certificate: %v", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  key,
	}, nil
}
