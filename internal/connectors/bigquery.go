package connectors

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/fedscan/fedscan/internal/credentials"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

type bigqueryConnector struct{}

func (bigqueryConnector) Name() string { return "bigquery" }

func (bigqueryConnector) Open(ctx context.Context, deps Deps, req OpenRequest) (table.ScanProvider, error) {
	if err := req.Options.Validate([]string{"project", "dataset", "table"}, []string{"credential"}); err != nil {
		return nil, err
	}
	project, err := req.Options.RequireString("project")
	if err != nil {
		return nil, err
	}
	dataset, err := req.Options.RequireString("dataset")
	if err != nil {
		return nil, err
	}
	tableName, err := req.Options.RequireString("table")
	if err != nil {
		return nil, err
	}
	cred, err := resolveCredential(deps, req.Options, credentials.ProviderGCP)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: bigquery requires a %q option naming a gcp credential",
			options.ErrInvalidOption, "credential")
	}
	key := []byte(cred.Secret.ServiceAccountKey)

	return deferred(ctx, req.Eager, func(ctx context.Context) (table.ScanProvider, error) {
		client, err := bigquery.NewClient(ctx, project, option.WithCredentialsJSON(key))
		if err != nil {
			return nil, fmt.Errorf("create bigquery client: %w", err)
		}
		md, err := client.Dataset(dataset).Table(tableName).Metadata(ctx)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("probe bigquery table %s.%s: %w", dataset, tableName, err)
		}
		return &bigqueryProvider{
			client:  client,
			project: project,
			dataset: dataset,
			table:   tableName,
			schema:  bqSchema(md.Schema),
		}, nil
	})
}

type bigqueryProvider struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
	schema  table.Schema
}

func (p *bigqueryProvider) Schema(ctx context.Context) (table.Schema, error) {
	return p.schema, nil
}

func (p *bigqueryProvider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	projected, _, err := p.schema.Project(req.Projection)
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(projected.Fields))
	for i, f := range projected.Fields {
		cols[i] = "`" + f.Name + "`"
	}
	query := fmt.Sprintf("SELECT %s FROM `%s.%s.%s`",
		strings.Join(cols, ", "), p.project, p.dataset, p.table)

	where, params, err := bqWhere(p.schema, req.Filters)
	if err != nil {
		return nil, err
	}
	if where != "" {
		query += " WHERE " + where
	}

	q := p.client.Query(query)
	q.Parameters = params
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("run bigquery query: %w", err)
	}
	return &bqBatchReader{
		schema:    projected,
		it:        it,
		batchSize: req.EffectiveBatchSize(),
	}, nil
}

func (p *bigqueryProvider) Close() error { return p.client.Close() }

func bqWhere(schema table.Schema, filters []table.Filter) (string, []bigquery.QueryParameter, error) {
	var (
		clauses []string
		params  []bigquery.QueryParameter
	)
	for _, f := range filters {
		if schema.FieldIndex(f.Column) < 0 {
			return "", nil, fmt.Errorf("%w: filter column %q not in schema", table.ErrTypeMismatch, f.Column)
		}
		col := "`" + f.Column + "`"
		switch f.Op {
		case table.FilterIsNull:
			clauses = append(clauses, col+" IS NULL")
		case table.FilterIsNotNull:
			clauses = append(clauses, col+" IS NOT NULL")
		default:
			op, err := sqlOp(f.Op)
			if err != nil {
				return "", nil, err
			}
			name := fmt.Sprintf("p%d", len(params))
			params = append(params, bigquery.QueryParameter{Name: name, Value: driverValue(f.Operand)})
			clauses = append(clauses, fmt.Sprintf("%s %s @%s", col, op, name))
		}
	}
	return strings.Join(clauses, " AND "), params, nil
}

func bqSchema(fields bigquery.Schema) table.Schema {
	out := make([]table.Field, len(fields))
	for i, f := range fields {
		out[i] = table.Field{
			Name:     f.Name,
			Type:     bqType(f.Type),
			Nullable: !f.Required,
		}
	}
	return table.Schema{Fields: out}
}

func bqType(t bigquery.FieldType) value.Type {
	switch t {
	case bigquery.IntegerFieldType:
		return value.TypeInt64
	case bigquery.FloatFieldType, bigquery.NumericFieldType, bigquery.BigNumericFieldType:
		return value.TypeFloat64
	case bigquery.BooleanFieldType:
		return value.TypeBool
	case bigquery.BytesFieldType:
		return value.TypeBytes
	case bigquery.TimestampFieldType:
		return value.TypeTimestamp
	default:
		return value.TypeString
	}
}

type bqBatchReader struct {
	schema    table.Schema
	it        *bigquery.RowIterator
	batchSize int
	done      bool
}

func (r *bqBatchReader) Next(ctx context.Context) (table.Batch, error) {
	if r.done {
		return table.Batch{}, io.EOF
	}
	columns := make([][]value.Value, r.schema.NumFields())
	count := 0
	for count < r.batchSize {
		if err := ctx.Err(); err != nil {
			return table.Batch{}, err
		}
		var row []bigquery.Value
		err := r.it.Next(&row)
		if err == iterator.Done {
			r.done = true
			break
		}
		if err != nil {
			return table.Batch{}, fmt.Errorf("read bigquery row: %w", err)
		}
		if len(row) != r.schema.NumFields() {
			return table.Batch{}, fmt.Errorf("bigquery row has %d columns, want %d", len(row), r.schema.NumFields())
		}
		for i, field := range r.schema.Fields {
			v, err := fromBigQuery(row[i], field.Type)
			if err != nil {
				return table.Batch{}, fmt.Errorf("%w: column %q: %v", table.ErrTypeMismatch, field.Name, err)
			}
			columns[i] = append(columns[i], v)
		}
		count++
	}
	if count == 0 {
		return table.Batch{}, io.EOF
	}
	return table.Batch{Schema: r.schema, Columns: columns}, nil
}

func (r *bqBatchReader) Close() error { return nil }

func fromBigQuery(cell bigquery.Value, target value.Type) (value.Value, error) {
	var v value.Value
	switch raw := cell.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		v = value.Bool(raw)
	case int64:
		v = value.Int64(raw)
	case float64:
		v = value.Float64(raw)
	case string:
		v = value.String(raw)
	case []byte:
		if target == value.TypeBytes {
			return value.Bytes(append([]byte(nil), raw...)), nil
		}
		v = value.String(string(raw))
	case time.Time:
		v = value.Timestamp(raw)
	case *big.Rat:
		f, _ := raw.Float64()
		v = value.Float64(f)
	default:
		v = value.String(fmt.Sprintf("%v", raw))
	}
	converted, ok := value.Convert(v, target)
	if !ok {
		return value.Null(), fmt.Errorf("cannot read %s as %s", v.Type(), target)
	}
	return converted, nil
}
