package xlsx

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

func buildWorkbook(t *testing.T, sheets map[string][][]any) location.Source {
	t.Helper()
	book := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			if err := book.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
			first = false
		} else {
			if _, err := book.NewSheet(name); err != nil {
				t.Fatalf("NewSheet: %v", err)
			}
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			if err := book.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data := buf.Bytes()
	return location.NewSource("book.xlsx", int64(len(data)), time.Time{}, func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

func scanAll(t *testing.T, p *Provider, req table.ScanRequest) (table.Schema, [][]value.Value) {
	t.Helper()
	reader, err := p.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	schema, rows, err := table.ReadAll(context.Background(), reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return schema, rows
}

func TestHeaderRowBecomesColumnNames(t *testing.T) {
	src := buildWorkbook(t, map[string][][]any{
		"data": {
			{"id", "name", "score"},
			{1, "a", 1.5},
			{2, "b", 2.5},
		},
	})
	p := NewProvider(src, Options{HasHeader: true})
	schema, rows := scanAll(t, p, table.ScanRequest{})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	want := []string{"id", "name", "score"}
	for i, name := range want {
		if schema.Fields[i].Name != name {
			t.Fatalf("field %d = %q, want %q", i, schema.Fields[i].Name, name)
		}
	}
	if schema.Fields[0].Type != value.TypeInt64 || schema.Fields[2].Type != value.TypeFloat64 {
		t.Fatalf("types = %+v", schema.Fields)
	}
	if rows[1][1].StringValue() != "b" {
		t.Fatalf("rows[1].name = %v", rows[1][1])
	}
}

func TestNoHeaderKeepsAllRows(t *testing.T) {
	src := buildWorkbook(t, map[string][][]any{
		"data": {
			{"id", "name"},
			{1, "a"},
		},
	})
	p := NewProvider(src, Options{})
	schema, rows := scanAll(t, p, table.ScanRequest{})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if schema.Fields[0].Name != "column0" || schema.Fields[1].Name != "column1" {
		t.Fatalf("fields = %+v", schema.Fields)
	}
	// Mixed text and number collapses to string.
	if schema.Fields[0].Type != value.TypeString {
		t.Fatalf("column0 type = %s", schema.Fields[0].Type)
	}
}

func TestSheetSelection(t *testing.T) {
	src := buildWorkbook(t, map[string][][]any{
		"other": {{"x"}, {1}},
	})
	p := NewProvider(src, Options{Sheet: "other", HasHeader: true})
	schema, rows := scanAll(t, p, table.ScanRequest{})
	if schema.Fields[0].Name != "x" || len(rows) != 1 {
		t.Fatalf("schema = %+v rows = %d", schema.Fields, len(rows))
	}

	missing := NewProvider(src, Options{Sheet: "nope"})
	if _, err := missing.Schema(context.Background()); err == nil {
		t.Fatal("unknown sheet should fail")
	}
}

func TestRaggedRowsPadWithNulls(t *testing.T) {
	src := buildWorkbook(t, map[string][][]any{
		"data": {
			{"a", "b", "c"},
			{1, 2, 3},
			{4},
		},
	})
	p := NewProvider(src, Options{HasHeader: true})
	_, rows := scanAll(t, p, table.ScanRequest{})
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if !rows[1][1].IsNull() || !rows[1][2].IsNull() {
		t.Fatalf("short row = %v, want trailing nulls", rows[1])
	}
}

func TestProjectionPushdown(t *testing.T) {
	src := buildWorkbook(t, map[string][][]any{
		"data": {
			{"id", "name"},
			{1, "a"},
			{2, "b"},
		},
	})
	p := NewProvider(src, Options{HasHeader: true})
	schema, rows := scanAll(t, p, table.ScanRequest{Projection: []string{"name"}})
	if schema.NumFields() != 1 || schema.Fields[0].Name != "name" {
		t.Fatalf("schema = %+v", schema.Fields)
	}
	if rows[0][0].StringValue() != "a" || rows[1][0].StringValue() != "b" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestBooleanCells(t *testing.T) {
	src := buildWorkbook(t, map[string][][]any{
		"data": {
			{"ok"},
			{true},
			{false},
		},
	})
	p := NewProvider(src, Options{HasHeader: true})
	schema, rows := scanAll(t, p, table.ScanRequest{})
	if schema.Fields[0].Type != value.TypeBool {
		t.Fatalf("type = %s", schema.Fields[0].Type)
	}
	if !rows[0][0].BoolValue() || rows[1][0].BoolValue() {
		t.Fatalf("rows = %v", rows)
	}
}
