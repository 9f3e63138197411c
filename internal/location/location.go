// Package location turns location strings (paths, globs, URLs,
// object-store URIs) into ordered sets of readable byte sources.
package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrEmptyLocationList reports a resolve call with nothing to resolve.
	ErrEmptyLocationList = errors.New("expected at least one url")
	// ErrUnsupportedGlobForScheme reports a wildcard in a scheme that
	// cannot enumerate, e.g. HTTP.
	ErrUnsupportedGlobForScheme = errors.New("globbing is not supported for this scheme")
	// ErrPathNotFound reports a location that resolved to nothing.
	ErrPathNotFound = errors.New("path not found")
)

// Scheme classifies a location string.
type Scheme int

const (
	SchemeFile Scheme = iota
	SchemeS3
	SchemeHTTP
)

func (s Scheme) String() string {
	switch s {
	case SchemeFile:
		return "file"
	case SchemeS3:
		return "s3"
	case SchemeHTTP:
		return "http"
	default:
		return "?"
	}
}

// Location is one classified location string.
type Location struct {
	Raw    string
	Scheme Scheme

	// file
	Path string

	// s3
	Bucket string
	Key    string

	// http
	URL string
}

// Classify parses a raw location string. It never touches the filesystem or
// network.
func Classify(raw string) (Location, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Location{}, fmt.Errorf("location is required")
	}
	switch {
	case strings.HasPrefix(trimmed, "s3://"):
		rest := strings.TrimPrefix(trimmed, "s3://")
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return Location{}, fmt.Errorf("invalid s3 location %q: want s3://bucket/key", raw)
		}
		return Location{Raw: raw, Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(trimmed, "http://"), strings.HasPrefix(trimmed, "https://"):
		return Location{Raw: raw, Scheme: SchemeHTTP, URL: trimmed}, nil
	case strings.HasPrefix(trimmed, "file://"):
		return Location{Raw: raw, Scheme: SchemeFile, Path: strings.TrimPrefix(trimmed, "file://")}, nil
	default:
		return Location{Raw: raw, Scheme: SchemeFile, Path: trimmed}, nil
	}
}

// HasGlob reports whether the string contains wildcard characters.
func HasGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// Join appends a relative path to a location root, preserving the scheme.
func Join(root string, parts ...string) string {
	joined := strings.TrimRight(root, "/")
	for _, p := range parts {
		joined += "/" + strings.Trim(p, "/")
	}
	return joined
}

// Source is one concrete readable object. Open may be called more than once;
// every call returns an independent reader.
type Source struct {
	Name         string
	Size         int64
	LastModified time.Time

	open func(ctx context.Context) (io.ReadCloser, error)
}

func (s Source) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.open(ctx)
}

// NewSource builds a Source from an open function. Used by tests and by the
// per-scheme resolvers.
func NewSource(name string, size int64, lastModified time.Time, open func(ctx context.Context) (io.ReadCloser, error)) Source {
	return Source{Name: name, Size: size, LastModified: lastModified, open: open}
}
