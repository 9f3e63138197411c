package ndjson

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/fedscan/fedscan/internal/location"
)

// openSource opens a resolved source and wraps it in a decompressor when the
// source name carries a known suffix. Unknown suffixes pass through as-is.
func openSource(ctx context.Context, src location.Source) (io.ReadCloser, error) {
	raw, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(src.Name, ".gz"):
		gz, err := gzip.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("open gzip stream %q: %w", src.Name, err)
		}
		return &layeredReadCloser{Reader: gz, closers: []io.Closer{gz, raw}}, nil
	case strings.HasSuffix(src.Name, ".zst"), strings.HasSuffix(src.Name, ".zstd"):
		dec, err := zstd.NewReader(raw)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("open zstd stream %q: %w", src.Name, err)
		}
		return &layeredReadCloser{Reader: dec, closers: []io.Closer{dec.IOReadCloser(), raw}}, nil
	default:
		return raw, nil
	}
}

// layeredReadCloser closes a decompressor and its underlying stream in order.
type layeredReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (l *layeredReadCloser) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
