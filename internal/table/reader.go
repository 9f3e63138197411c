package table

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fedscan/fedscan/internal/value"
)

// RowIterator is the row-at-a-time source format readers implement. NextRow
// returns io.EOF when exhausted; returned rows follow the base schema's
// declaration order.
type RowIterator interface {
	NextRow(ctx context.Context) ([]value.Value, error)
	Close() error
}

// NewBatchReader adapts a RowIterator into the batch contract: it validates
// the projection against the base schema, applies filters on the full row,
// then assembles projected columnar batches. Keeping projection handling
// here means no reader can accidentally depend on projection order.
func NewBatchReader(schema Schema, it RowIterator, req ScanRequest) (BatchReader, error) {
	projected, indices, err := schema.Project(req.Projection)
	if err != nil {
		return nil, err
	}
	return &rowBatchReader{
		base:      schema,
		projected: projected,
		indices:   indices,
		filters:   req.Filters,
		batchSize: req.EffectiveBatchSize(),
		it:        it,
	}, nil
}

type rowBatchReader struct {
	base      Schema
	projected Schema
	indices   []int
	filters   []Filter
	batchSize int
	it        RowIterator
	done      bool
}

func (r *rowBatchReader) Next(ctx context.Context) (Batch, error) {
	if r.done {
		return Batch{}, io.EOF
	}
	cols := make([][]value.Value, len(r.indices))
	for i := range cols {
		cols[i] = make([]value.Value, 0, r.batchSize)
	}
	rows := 0
	for rows < r.batchSize {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		row, err := r.it.NextRow(ctx)
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			return Batch{}, err
		}
		if len(row) != r.base.NumFields() {
			return Batch{}, fmt.Errorf("row width %d does not match schema width %d", len(row), r.base.NumFields())
		}
		match, err := MatchRow(r.base, row, r.filters)
		if err != nil {
			return Batch{}, err
		}
		if !match {
			continue
		}
		for i, src := range r.indices {
			cols[i] = append(cols[i], row[src])
		}
		rows++
	}
	if rows == 0 {
		return Batch{}, io.EOF
	}
	return Batch{Schema: r.projected, Columns: cols}, nil
}

func (r *rowBatchReader) Close() error { return r.it.Close() }

// SliceIterator serves an in-memory row set as a RowIterator.
type SliceIterator struct {
	rows [][]value.Value
	pos  int
}

func NewSliceIterator(rows [][]value.Value) *SliceIterator {
	return &SliceIterator{rows: rows}
}

func (s *SliceIterator) NextRow(ctx context.Context) ([]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *SliceIterator) Close() error { return nil }

// ReadAll drains a reader into a single row-major slice. Test helper and
// probe path; production scans pull batch by batch.
func ReadAll(ctx context.Context, reader BatchReader) (Schema, [][]value.Value, error) {
	var (
		schema Schema
		rows   [][]value.Value
		first  = true
	)
	for {
		batch, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			return schema, rows, nil
		}
		if err != nil {
			return Schema{}, nil, err
		}
		if first {
			schema = batch.Schema
			first = false
		}
		for i := 0; i < batch.NumRows(); i++ {
			rows = append(rows, batch.Row(i))
		}
	}
}
