// Package xlsx reads a single worksheet of an Excel workbook as a table.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

const DefaultInferRows = 100

type Options struct {
	// Sheet selects the worksheet by name. Empty means the first sheet.
	Sheet string
	// HasHeader treats the first row as column names instead of data.
	HasHeader bool
	// InferRows caps how many leading data rows type inference samples.
	// Zero or negative selects DefaultInferRows.
	InferRows int
}

func (o Options) effectiveInferRows() int {
	if o.InferRows > 0 {
		return o.InferRows
	}
	return DefaultInferRows
}

// Provider scans one worksheet. The workbook is loaded once on first use;
// xlsx files are not streamable, so the cell grid lives in memory.
type Provider struct {
	source location.Source
	opts   Options

	schema *table.Schema
	rows   [][]string
}

func NewProvider(source location.Source, opts Options) *Provider {
	return &Provider{source: source, opts: opts}
}

func (p *Provider) Schema(ctx context.Context) (table.Schema, error) {
	if err := p.load(ctx); err != nil {
		return table.Schema{}, err
	}
	return *p.schema, nil
}

func (p *Provider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	it := &rowIterator{schema: *p.schema, rows: p.rows, name: p.source.Name}
	return table.NewBatchReader(*p.schema, it, req)
}

func (p *Provider) Close() error { return nil }

func (p *Provider) load(ctx context.Context) error {
	if p.schema != nil {
		return nil
	}
	raw, err := p.source.Open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = raw.Close() }()

	book, err := excelize.OpenReader(raw)
	if err != nil {
		return fmt.Errorf("open workbook %q: %w", p.source.Name, err)
	}
	defer func() { _ = book.Close() }()

	sheet := p.opts.Sheet
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return fmt.Errorf("workbook %q has no sheets", p.source.Name)
		}
		sheet = sheets[0]
	} else if idx, err := book.GetSheetIndex(sheet); err != nil || idx < 0 {
		return fmt.Errorf("workbook %q has no sheet %q", p.source.Name, sheet)
	}

	grid, err := book.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q of %q: %w", sheet, p.source.Name, err)
	}

	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}

	var names []string
	if p.opts.HasHeader && len(grid) > 0 {
		names = columnNames(grid[0], width)
		grid = grid[1:]
	} else {
		names = columnNames(nil, width)
	}

	fields := make([]table.Field, width)
	for i := range fields {
		typ := value.TypeNull
		for r := 0; r < len(grid) && r < p.opts.effectiveInferRows(); r++ {
			typ = value.Unify(typ, cellType(cellAt(grid[r], i)))
		}
		if typ == value.TypeNull {
			typ = value.TypeString
		}
		fields[i] = table.Field{Name: names[i], Type: typ, Nullable: true}
	}

	schema := table.Schema{Fields: fields}
	p.schema = &schema
	p.rows = grid
	return nil
}

// columnNames fills in header names, falling back to columnN for blank or
// missing cells so every field has a usable name.
func columnNames(header []string, width int) []string {
	names := make([]string, width)
	for i := range names {
		name := strings.TrimSpace(cellAt(header, i))
		if name == "" {
			name = "column" + strconv.Itoa(i)
		}
		names[i] = name
	}
	return names
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func cellType(cell string) value.Type {
	return cellValue(cell).Type()
}

// cellValue guesses the scalar for a formatted cell. excelize hands cells
// back as display strings, so numbers and booleans are re-parsed here.
func cellValue(cell string) value.Value {
	if cell == "" {
		return value.Null()
	}
	if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return value.Int64(i)
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return value.Float64(f)
	}
	switch strings.ToLower(cell) {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	}
	return value.String(cell)
}

type rowIterator struct {
	schema table.Schema
	rows   [][]string
	name   string
	pos    int
}

func (r *rowIterator) NextRow(ctx context.Context) ([]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	cells := r.rows[r.pos]
	r.pos++

	row := make([]value.Value, r.schema.NumFields())
	for i, field := range r.schema.Fields {
		v := cellValue(cellAt(cells, i))
		converted, ok := value.Convert(v, field.Type)
		if !ok {
			return nil, fmt.Errorf("%w: column %q expects %s, got %s in %q",
				table.ErrTypeMismatch, field.Name, field.Type, v.Type(), r.name)
		}
		row[i] = converted
	}
	return row, nil
}

func (r *rowIterator) Close() error { return nil }
