package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/fabioarnold/blobbyvolley2/client/scene"
)

// Fetcher loads assets relative to a base URL. Under GOOS=js the default
// client goes through the browser's fetch.
type Fetcher struct {
	base   *url.URL
	client *http.Client

	// MaxTextureSize is passed to DecodeImage for every image.
	MaxTextureSize int
}

func NewFetcher(baseURL string, client *http.Client) (*Fetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %v", baseURL, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		base:           base,
		client:         client,
		MaxTextureSize: DefaultMaxTextureSize,
	}, nil
}

// URL resolves path against the base URL.
func (f *Fetcher) URL(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing asset path %q: %v", path, err)
	}
	return f.base.ResolveReference(ref).String(), nil
}

// Fetch returns the body of the asset at path.
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	body, err := f.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %v", path, err)
	}
	return data, nil
}

func (f *Fetcher) LoadModel(ctx context.Context, path string) (*scene.Node, error) {
	body, err := f.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return DecodeGLB(body, path, f.MaxTextureSize)
}

func (f *Fetcher) LoadImage(ctx context.Context, path string) (*scene.Image, error) {
	body, err := f.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return DecodeImage(body, f.MaxTextureSize)
}

func (f *Fetcher) open(ctx context.Context, path string) (io.ReadCloser, error) {
	u, err := f.URL(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %v", u, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %v", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: %s", u, resp.Status)
	}
	return resp.Body, nil
}
