// Package blob exposes resolved sources as rows of file metadata plus raw
// contents. One source becomes one row.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

// Schema is fixed; every blob scan produces these four columns.
func Schema() table.Schema {
	return table.Schema{Fields: []table.Field{
		{Name: "filename", Type: value.TypeString},
		{Name: "size", Type: value.TypeInt64},
		{Name: "last_modified", Type: value.TypeTimestamp, Nullable: true},
		{Name: "content", Type: value.TypeBytes},
	}}
}

type Provider struct {
	sources []location.Source
}

func NewProvider(sources []location.Source) (*Provider, error) {
	if len(sources) == 0 {
		return nil, location.ErrEmptyLocationList
	}
	return &Provider{sources: sources}, nil
}

func (p *Provider) Schema(ctx context.Context) (table.Schema, error) {
	return Schema(), nil
}

func (p *Provider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	it := &rowIterator{
		sources:     p.sources,
		needContent: needsContent(req),
	}
	return table.NewBatchReader(Schema(), it, req)
}

func (p *Provider) Close() error { return nil }

// needsContent reports whether the scan actually observes the content
// column. When it does not, file bodies are never fetched.
func needsContent(req table.ScanRequest) bool {
	for _, f := range req.Filters {
		if f.Column == "content" {
			return true
		}
	}
	if len(req.Projection) == 0 {
		return true
	}
	for _, name := range req.Projection {
		if name == "content" {
			return true
		}
	}
	return false
}

type rowIterator struct {
	sources     []location.Source
	needContent bool
	pos         int
}

func (r *rowIterator) NextRow(ctx context.Context) ([]value.Value, error) {
	if r.pos >= len(r.sources) {
		return nil, io.EOF
	}
	src := r.sources[r.pos]
	r.pos++

	content := value.Bytes(nil)
	if r.needContent {
		reader, err := src.Open(ctx)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(reader)
		cerr := reader.Close()
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", src.Name, err)
		}
		if cerr != nil {
			return nil, fmt.Errorf("close %q: %w", src.Name, cerr)
		}
		content = value.Bytes(data)
	}

	modified := value.Null()
	if !src.LastModified.IsZero() {
		modified = value.Timestamp(src.LastModified)
	}
	return []value.Value{
		value.String(src.Name),
		value.Int64(src.Size),
		modified,
		content,
	}, nil
}

func (r *rowIterator) Close() error { return nil }
