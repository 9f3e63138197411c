package catalog

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/fedscan/fedscan/internal/observability"
	"github.com/fedscan/fedscan/internal/table"
)

// instrument wraps a provider so every scan reports batch, row, and duration
// metrics under the provider keyword.
func instrument(p table.ScanProvider, provider string) table.ScanProvider {
	return &measuredProvider{inner: p, provider: provider}
}

type measuredProvider struct {
	inner    table.ScanProvider
	provider string
}

func (m *measuredProvider) Schema(ctx context.Context) (table.Schema, error) {
	return m.inner.Schema(ctx)
}

func (m *measuredProvider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	reader, err := m.inner.Scan(ctx, req)
	if err != nil {
		observability.ObserveScan(m.provider, "error", 0)
		return nil, err
	}
	return &measuredReader{inner: reader, provider: m.provider, started: time.Now()}, nil
}

func (m *measuredProvider) Close() error { return m.inner.Close() }

type measuredReader struct {
	inner    table.BatchReader
	provider string
	started  time.Time
	finished bool
}

func (r *measuredReader) Next(ctx context.Context) (table.Batch, error) {
	batch, err := r.inner.Next(ctx)
	switch {
	case err == nil:
		observability.ObserveBatch(r.provider, batch.NumRows())
	case errors.Is(err, io.EOF):
		r.finish("ok")
	default:
		r.finish("error")
	}
	return batch, err
}

func (r *measuredReader) Close() error {
	r.finish("closed")
	return r.inner.Close()
}

func (r *measuredReader) finish(outcome string) {
	if r.finished {
		return
	}
	r.finished = true
	observability.ObserveScan(r.provider, outcome, time.Since(r.started))
}
