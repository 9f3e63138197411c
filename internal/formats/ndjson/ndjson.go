// Package ndjson reads newline-delimited JSON sources as one logical table.
// The schema is inferred from a bounded sample of leading records and then
// applied to the remainder; sources whose names carry a known compression
// suffix are decompressed transparently.
package ndjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

// DefaultInferRows bounds schema inference when the caller does not set its
// own limit.
const DefaultInferRows = 100

type Options struct {
	// InferRows caps how many leading records are sampled for inference.
	// Zero or negative selects DefaultInferRows.
	InferRows int
}

func (o Options) effectiveInferRows() int {
	if o.InferRows > 0 {
		return o.InferRows
	}
	return DefaultInferRows
}

// Provider scans one or more NDJSON sources as a single table.
type Provider struct {
	sources []location.Source
	opts    Options
	schema  *table.Schema
}

func NewProvider(sources []location.Source, opts Options) (*Provider, error) {
	if len(sources) == 0 {
		return nil, location.ErrEmptyLocationList
	}
	return &Provider{sources: sources, opts: opts}, nil
}

// Schema infers the table schema from the first source's leading records.
// Field order is sorted by name so the inferred schema is stable across
// runs regardless of per-record key order.
func (p *Provider) Schema(ctx context.Context) (table.Schema, error) {
	if p.schema != nil {
		return *p.schema, nil
	}
	reader, err := openSource(ctx, p.sources[0])
	if err != nil {
		return table.Schema{}, err
	}
	defer func() { _ = reader.Close() }()

	dec := json.NewDecoder(reader)
	dec.UseNumber()

	types := map[string]value.Type{}
	for sampled := 0; sampled < p.opts.effectiveInferRows(); sampled++ {
		if err := ctx.Err(); err != nil {
			return table.Schema{}, err
		}
		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return table.Schema{}, fmt.Errorf("decode ndjson record from %q: %w", p.sources[0].Name, err)
		}
		for key, raw := range record {
			v := fromJSON(raw)
			types[key] = value.Unify(types[key], v.Type())
		}
	}
	if len(types) == 0 {
		return table.Schema{}, fmt.Errorf("no records to infer a schema from in %q", p.sources[0].Name)
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]table.Field, 0, len(names))
	for _, name := range names {
		typ := types[name]
		if typ == value.TypeNull {
			typ = value.TypeString
		}
		fields = append(fields, table.Field{Name: name, Type: typ, Nullable: true})
	}
	schema := table.Schema{Fields: fields}
	p.schema = &schema
	return schema, nil
}

func (p *Provider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	schema, err := p.Schema(ctx)
	if err != nil {
		return nil, err
	}
	it := &rowIterator{schema: schema, sources: p.sources}
	return table.NewBatchReader(schema, it, req)
}

func (p *Provider) Close() error { return nil }

type rowIterator struct {
	schema  table.Schema
	sources []location.Source
	pos     int
	current io.ReadCloser
	name    string
	dec     *json.Decoder
}

func (r *rowIterator) NextRow(ctx context.Context) ([]value.Value, error) {
	for {
		if r.dec == nil {
			if r.pos >= len(r.sources) {
				return nil, io.EOF
			}
			src := r.sources[r.pos]
			r.pos++
			reader, err := openSource(ctx, src)
			if err != nil {
				return nil, err
			}
			r.current = reader
			r.name = src.Name
			r.dec = json.NewDecoder(reader)
			r.dec.UseNumber()
		}
		var record map[string]any
		err := r.dec.Decode(&record)
		if errors.Is(err, io.EOF) {
			if cerr := r.closeCurrent(); cerr != nil {
				return nil, cerr
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decode ndjson record from %q: %w", r.name, err)
		}
		return r.buildRow(record)
	}
}

func (r *rowIterator) buildRow(record map[string]any) ([]value.Value, error) {
	row := make([]value.Value, r.schema.NumFields())
	for i, field := range r.schema.Fields {
		raw, ok := record[field.Name]
		if !ok {
			row[i] = value.Null()
			continue
		}
		v := fromJSON(raw)
		converted, ok := value.Convert(v, field.Type)
		if !ok {
			return nil, fmt.Errorf("%w: column %q expects %s, got %s in %q",
				table.ErrTypeMismatch, field.Name, field.Type, v.Type(), r.name)
		}
		row[i] = converted
	}
	return row, nil
}

func (r *rowIterator) closeCurrent() error {
	r.dec = nil
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	return err
}

func (r *rowIterator) Close() error { return r.closeCurrent() }

// fromJSON maps a decoded JSON value onto the scalar model. Objects keep
// their raw JSON text; arrays become lists.
func fromJSON(raw any) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(v)
	case json.Number:
		if !strings.ContainsAny(v.String(), ".eE") {
			if i, err := v.Int64(); err == nil {
				return value.Int64(i)
			}
		}
		f, err := v.Float64()
		if err != nil {
			return value.String(v.String())
		}
		return value.Float64(f)
	case string:
		return value.String(v)
	case []any:
		items := make([]value.Value, len(v))
		for i, item := range v {
			items[i] = fromJSON(item)
		}
		return value.List(items)
	case map[string]any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return value.Null()
		}
		return value.String(string(encoded))
	default:
		return value.String(fmt.Sprintf("%v", v))
	}
}
