package ndjson

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

func sourceFromString(name, data string) location.Source {
	return location.NewSource(name, int64(len(data)), time.Time{}, func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(data)), nil
	})
}

func sourceFromBytes(name string, data []byte) location.Source {
	return location.NewSource(name, int64(len(data)), time.Time{}, func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

func TestSchemaInferenceSortsFields(t *testing.T) {
	src := sourceFromString("rows.ndjson", `{"zeta": 1, "alpha": "x", "mid": true}
{"zeta": 2, "alpha": "y", "mid": false}
`)
	p, err := NewProvider([]location.Source{src}, Options{})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	schema, err := p.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(schema.Fields) != len(want) {
		t.Fatalf("fields = %+v", schema.Fields)
	}
	for i, name := range want {
		if schema.Fields[i].Name != name {
			t.Fatalf("field %d = %q, want %q", i, schema.Fields[i].Name, name)
		}
	}
	if schema.Fields[0].Type != value.TypeString || schema.Fields[1].Type != value.TypeBool || schema.Fields[2].Type != value.TypeInt64 {
		t.Fatalf("types = %+v", schema.Fields)
	}
}

func TestSchemaInferenceUnifiesTypes(t *testing.T) {
	src := sourceFromString("rows.ndjson", `{"n": 1}
{"n": 2.5}
{"n": null}
`)
	p, err := NewProvider([]location.Source{src}, Options{})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	schema, err := p.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	if schema.Fields[0].Type != value.TypeFloat64 {
		t.Fatalf("unified type = %s, want float64", schema.Fields[0].Type)
	}
}

func TestScanReadsAllRows(t *testing.T) {
	src := sourceFromString("rows.ndjson", `{"id": 1, "name": "a"}
{"id": 2, "name": "b"}
{"id": 3}
`)
	p, err := NewProvider([]location.Source{src}, Options{})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	reader, err := p.Scan(context.Background(), table.ScanRequest{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	_, rows, err := table.ReadAll(context.Background(), reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	// Schema is {id, name}; missing keys surface as nulls.
	if got := rows[0][0].IntValue(); got != 1 {
		t.Fatalf("rows[0].id = %d", got)
	}
	if !rows[2][1].IsNull() {
		t.Fatalf("rows[2].name = %v, want null", rows[2][1])
	}
}

func TestScanUnionsSourcesInOrder(t *testing.T) {
	first := sourceFromString("a.ndjson", `{"id": 1}
{"id": 2}
`)
	second := sourceFromString("b.ndjson", `{"id": 3}
`)
	p, err := NewProvider([]location.Source{first, second}, Options{})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	reader, err := p.Scan(context.Background(), table.ScanRequest{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	_, rows, err := table.ReadAll(context.Background(), reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	var got []int64
	for _, row := range rows {
		got = append(got, row[0].IntValue())
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("ids = %v, want [1 2 3]", got)
	}
}

func TestScanRejectsIncompatibleLaterRows(t *testing.T) {
	src := sourceFromString("rows.ndjson", `{"id": 1}
{"id": "not a number"}
`)
	p, err := NewProvider([]location.Source{src}, Options{InferRows: 1})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	reader, err := p.Scan(context.Background(), table.ScanRequest{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	_, _, err = table.ReadAll(context.Background(), reader)
	if !errors.Is(err, table.ErrTypeMismatch) {
		t.Fatalf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestInferRowsLimitsSample(t *testing.T) {
	// The second record would widen n to float64 if it were sampled.
	src := sourceFromString("rows.ndjson", `{"n": 1}
{"n": 2.5}
`)
	p, err := NewProvider([]location.Source{src}, Options{InferRows: 1})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	schema, err := p.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	if schema.Fields[0].Type != value.TypeInt64 {
		t.Fatalf("type = %s, want int64", schema.Fields[0].Type)
	}
}

func TestGzipSource(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(`{"id": 7}` + "\n")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	p, err := NewProvider([]location.Source{sourceFromBytes("rows.ndjson.gz", buf.Bytes())}, Options{})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	reader, err := p.Scan(context.Background(), table.ScanRequest{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	_, rows, err := table.ReadAll(context.Background(), reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 1 || rows[0][0].IntValue() != 7 {
		t.Fatalf("rows = %v", rows)
	}
}

func TestZstdSource(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := enc.Write([]byte(`{"id": 9}` + "\n")); err != nil {
		t.Fatalf("zstd write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}

	p, err := NewProvider([]location.Source{sourceFromBytes("rows.ndjson.zst", buf.Bytes())}, Options{})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	reader, err := p.Scan(context.Background(), table.ScanRequest{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	_, rows, err := table.ReadAll(context.Background(), reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(rows) != 1 || rows[0][0].IntValue() != 9 {
		t.Fatalf("rows = %v", rows)
	}
}

func TestEmptySourceListRejected(t *testing.T) {
	if _, err := NewProvider(nil, Options{}); !errors.Is(err, location.ErrEmptyLocationList) {
		t.Fatalf("err = %v, want ErrEmptyLocationList", err)
	}
}

func TestNestedObjectsKeepRawJSON(t *testing.T) {
	src := sourceFromString("rows.ndjson", `{"meta": {"a": 1}, "tags": ["x", "y"]}
`)
	p, err := NewProvider([]location.Source{src}, Options{})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	reader, err := p.Scan(context.Background(), table.ScanRequest{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	_, rows, err := table.ReadAll(context.Background(), reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if meta := rows[0][0].StringValue(); meta != `{"a":1}` {
		t.Fatalf("meta = %q", meta)
	}
	tags := rows[0][1]
	if tags.Type() != value.TypeList {
		t.Fatalf("tags type = %s", tags.Type())
	}
}
