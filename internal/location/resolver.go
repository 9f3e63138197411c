package location

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fedscan/fedscan/internal/credentials"
	"github.com/fedscan/fedscan/internal/options"
)

// Config carries the resolver's ambient settings.
type Config struct {
	// S3Endpoint overrides the AWS endpoint, e.g. a MinIO host. Empty
	// selects the regional AWS endpoint.
	S3Endpoint  string
	S3UseSSL    bool
	HTTPTimeout time.Duration
}

// ResolveOptions carries per-resolve state: the credential and region bound
// to the table or call being resolved.
type ResolveOptions struct {
	Credential *credentials.Credential
	Region     string
}

// Resolver expands location strings into ordered source sets. It is
// stateless apart from its HTTP client and safe for concurrent use.
type Resolver struct {
	cfg        Config
	httpClient *http.Client
}

func NewResolver(cfg Config) *Resolver {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Resolve expands every location in order and unions the results in list
// order. Local and s3 globs expand sorted; HTTP rejects wildcards.
func (r *Resolver) Resolve(ctx context.Context, locations []string, opts ResolveOptions) ([]Source, error) {
	if len(locations) == 0 {
		return nil, ErrEmptyLocationList
	}
	var sources []Source
	for _, raw := range locations {
		loc, err := Classify(raw)
		if err != nil {
			return nil, err
		}
		expanded, err := r.resolveOne(ctx, loc, opts)
		if err != nil {
			return nil, err
		}
		sources = append(sources, expanded...)
	}
	return sources, nil
}

// Open reads a single non-glob location. Point-read path used by metadata
// readers.
func (r *Resolver) Open(ctx context.Context, raw string, opts ResolveOptions) (io.ReadCloser, error) {
	loc, err := Classify(raw)
	if err != nil {
		return nil, err
	}
	if HasGlob(loc.Raw) {
		return nil, fmt.Errorf("%w: %q is not a single object", ErrUnsupportedGlobForScheme, raw)
	}
	sources, err := r.resolveOne(ctx, loc, opts)
	if err != nil {
		return nil, err
	}
	if len(sources) != 1 {
		return nil, fmt.Errorf("%w: %q", ErrPathNotFound, raw)
	}
	return sources[0].Open(ctx)
}

func (r *Resolver) resolveOne(ctx context.Context, loc Location, opts ResolveOptions) ([]Source, error) {
	switch loc.Scheme {
	case SchemeFile:
		return resolveLocal(loc)
	case SchemeS3:
		return r.resolveS3(ctx, loc, opts)
	case SchemeHTTP:
		return r.resolveHTTP(loc)
	default:
		return nil, fmt.Errorf("unsupported scheme for %q", loc.Raw)
	}
}

func resolveLocal(loc Location) ([]Source, error) {
	if HasGlob(loc.Path) {
		matches, err := filepath.Glob(loc.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", loc.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: no files matched %q", ErrPathNotFound, loc.Raw)
		}
		sort.Strings(matches)
		sources := make([]Source, 0, len(matches))
		for _, match := range matches {
			src, err := localSource(match)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
		return sources, nil
	}
	src, err := localSource(loc.Path)
	if err != nil {
		return nil, err
	}
	return []Source{src}, nil
}

func localSource(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %q", ErrPathNotFound, path)
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("%w: %q is a directory", ErrPathNotFound, path)
	}
	return NewSource(path, info.Size(), info.ModTime().UTC(), func(ctx context.Context) (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrPathNotFound, path)
		}
		return f, nil
	}), nil
}

func (r *Resolver) resolveHTTP(loc Location) ([]Source, error) {
	if HasGlob(loc.URL) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGlobForScheme, loc.Raw)
	}
	url := loc.URL
	client := r.httpClient
	return []Source{NewSource(url, -1, time.Time{}, func(ctx context.Context) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request for %q: %w", url, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %q: %w", url, err)
		}
		if resp.StatusCode == http.StatusNotFound {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: %q", ErrPathNotFound, url)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("fetch %q: unexpected status %s", url, resp.Status)
		}
		return resp.Body, nil
	})}, nil
}

// requireS3Auth validates the credential/region pair every s3 location
// needs.
func requireS3Auth(loc Location, opts ResolveOptions) error {
	if opts.Credential == nil || opts.Credential.Provider != credentials.ProviderAWS {
		return fmt.Errorf("%w: s3 location %q requires an aws credential", options.ErrInvalidOption, loc.Raw)
	}
	if opts.Region == "" {
		return fmt.Errorf("%w: s3 location %q requires a region", options.ErrInvalidOption, loc.Raw)
	}
	return nil
}
