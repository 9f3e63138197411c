package iceberg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

// dataFileIterator streams rows out of a snapshot's parquet files, one file
// at a time. Each file is fetched whole; parquet needs random access and the
// sources behind s3 and http do not provide it.
type dataFileIterator struct {
	schema   table.Schema
	resolver *location.Resolver
	opts     location.ResolveOptions
	files    []DataFile
	pos      int

	pending    [][]value.Value
	pendingPos int
}

func (it *dataFileIterator) NextRow(ctx context.Context) ([]value.Value, error) {
	for {
		if it.pendingPos < len(it.pending) {
			row := it.pending[it.pendingPos]
			it.pendingPos++
			return row, nil
		}
		if it.pos >= len(it.files) {
			return nil, io.EOF
		}
		file := it.files[it.pos]
		it.pos++
		rows, err := it.loadFile(ctx, file)
		if err != nil {
			return nil, err
		}
		it.pending = rows
		it.pendingPos = 0
	}
}

func (it *dataFileIterator) Close() error {
	it.pending = nil
	return nil
}

func (it *dataFileIterator) loadFile(ctx context.Context, file DataFile) ([][]value.Value, error) {
	if file.Format != "" && !strings.EqualFold(file.Format, "parquet") {
		return nil, fmt.Errorf("unsupported data file format %q for %q", file.Format, file.Path)
	}
	raw, err := readAll(ctx, it.resolver, file.Path, it.opts)
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open parquet file %q: %w", file.Path, err)
	}

	// Leaf column index -> position in the table schema.
	leafToField := make([]int, 0)
	for _, path := range pf.Schema().Columns() {
		name := path[0]
		leafToField = append(leafToField, it.schema.FieldIndex(name))
	}

	var out [][]value.Value
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		buf := make([]parquet.Row, 128)
		for {
			if err := ctx.Err(); err != nil {
				_ = rows.Close()
				return nil, err
			}
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				converted, cerr := it.convertRow(file.Path, leafToField, row)
				if cerr != nil {
					_ = rows.Close()
					return nil, cerr
				}
				out = append(out, converted)
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				_ = rows.Close()
				return nil, fmt.Errorf("read parquet rows from %q: %w", file.Path, err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("close parquet rows of %q: %w", file.Path, err)
		}
	}
	return out, nil
}

func (it *dataFileIterator) convertRow(path string, leafToField []int, row parquet.Row) ([]value.Value, error) {
	out := make([]value.Value, it.schema.NumFields())
	for i := range out {
		out[i] = value.Null()
	}
	for _, pv := range row {
		leaf := pv.Column()
		if leaf < 0 || leaf >= len(leafToField) {
			continue
		}
		fieldIdx := leafToField[leaf]
		if fieldIdx < 0 {
			// Column not in the table schema; dropped field.
			continue
		}
		field := it.schema.Fields[fieldIdx]
		v, err := fromParquet(pv, field.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q in %q: %v", table.ErrTypeMismatch, field.Name, path, err)
		}
		out[fieldIdx] = v
	}
	return out, nil
}

// fromParquet maps one parquet value onto the target scalar type.
// Timestamps arrive as microseconds since epoch per the Iceberg spec.
func fromParquet(pv parquet.Value, target value.Type) (value.Value, error) {
	if pv.IsNull() {
		return value.Null(), nil
	}
	var v value.Value
	switch pv.Kind() {
	case parquet.Boolean:
		v = value.Bool(pv.Boolean())
	case parquet.Int32:
		v = value.Int32(pv.Int32())
	case parquet.Int64:
		if target == value.TypeTimestamp {
			return value.Timestamp(time.UnixMicro(pv.Int64()).UTC()), nil
		}
		v = value.Int64(pv.Int64())
	case parquet.Float:
		v = value.Float32(pv.Float())
	case parquet.Double:
		v = value.Float64(pv.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		if target == value.TypeBytes {
			return value.Bytes(append([]byte(nil), pv.ByteArray()...)), nil
		}
		v = value.String(string(pv.ByteArray()))
	default:
		return value.Null(), fmt.Errorf("unsupported parquet kind %s", pv.Kind())
	}
	converted, ok := value.Convert(v, target)
	if !ok {
		return value.Null(), fmt.Errorf("cannot read %s as %s", v.Type(), target)
	}
	return converted, nil
}
