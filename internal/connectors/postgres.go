package connectors

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fedscan/fedscan/internal/credentials"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

type postgresConnector struct{}

func (postgresConnector) Name() string { return "postgres" }

func (postgresConnector) Open(ctx context.Context, deps Deps, req OpenRequest) (table.ScanProvider, error) {
	if err := req.Options.Validate([]string{"table"}, []string{"schema", "credential", "connection_string"}); err != nil {
		return nil, err
	}
	tableName, err := req.Options.RequireString("table")
	if err != nil {
		return nil, err
	}
	schemaName, ok, err := req.Options.String("schema")
	if err != nil {
		return nil, err
	}
	if !ok {
		schemaName = "public"
	}

	dsn, _, err := req.Options.String("connection_string")
	if err != nil {
		return nil, err
	}
	cred, err := resolveCredential(deps, req.Options, credentials.ProviderPostgres)
	if err != nil {
		return nil, err
	}
	if cred != nil {
		dsn = cred.Secret.ConnectionString
	}
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres needs a %q credential or a %q option",
			options.ErrInvalidOption, "credential", "connection_string")
	}

	return deferred(ctx, req.Eager, func(ctx context.Context) (table.ScanProvider, error) {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres connection: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		p := newPostgresProvider(db, schemaName, tableName)
		p.ownsDB = true
		return p, nil
	})
}

// postgresProvider scans one relation. Projection and filters are pushed
// into the generated SELECT.
type postgresProvider struct {
	db         *sql.DB
	schemaName string
	tableName  string
	ownsDB     bool

	schema *table.Schema
}

func newPostgresProvider(db *sql.DB, schemaName, tableName string) *postgresProvider {
	return &postgresProvider{db: db, schemaName: schemaName, tableName: tableName}
}

func (p *postgresProvider) Schema(ctx context.Context) (table.Schema, error) {
	if p.schema != nil {
		return *p.schema, nil
	}
	const query = `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`
	rows, err := p.db.QueryContext(ctx, query, p.schemaName, p.tableName)
	if err != nil {
		return table.Schema{}, fmt.Errorf("query postgres schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fields []table.Field
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return table.Schema{}, fmt.Errorf("scan postgres schema row: %w", err)
		}
		fields = append(fields, table.Field{
			Name:     name,
			Type:     pgType(dataType),
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return table.Schema{}, fmt.Errorf("read postgres schema: %w", err)
	}
	if len(fields) == 0 {
		return table.Schema{}, fmt.Errorf("relation %s.%s does not exist", p.schemaName, p.tableName)
	}
	schema := table.Schema{Fields: fields}
	p.schema = &schema
	return schema, nil
}

func (p *postgresProvider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	full, err := p.Schema(ctx)
	if err != nil {
		return nil, err
	}
	projected, _, err := full.Project(req.Projection)
	if err != nil {
		return nil, err
	}

	cols := make([]string, len(projected.Fields))
	for i, f := range projected.Fields {
		cols[i] = quoteIdent(f.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s.%s",
		strings.Join(cols, ", "), quoteIdent(p.schemaName), quoteIdent(p.tableName))

	where, args, err := buildWhere(full, req.Filters)
	if err != nil {
		return nil, err
	}
	if where != "" {
		query += " WHERE " + where
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query postgres rows: %w", err)
	}
	return &pgBatchReader{
		schema:    projected,
		rows:      rows,
		batchSize: req.EffectiveBatchSize(),
	}, nil
}

func (p *postgresProvider) Close() error {
	if p.ownsDB {
		return p.db.Close()
	}
	return nil
}

// buildWhere renders pushed-down filters as a parameterized conjunction.
func buildWhere(schema table.Schema, filters []table.Filter) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for _, f := range filters {
		if schema.FieldIndex(f.Column) < 0 {
			return "", nil, fmt.Errorf("%w: filter column %q not in schema", table.ErrTypeMismatch, f.Column)
		}
		col := quoteIdent(f.Column)
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
			args = append(args, driverValue(f.Operand))
			clauses = append(clauses, fmt.Sprintf("%s %s $%d", col, op, len(args)))
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

func sqlOp(op table.FilterOp) (string, error) {
	switch op {
	case table.FilterEq:
		return "=", nil
	case table.FilterNotEq:
		return "<>", nil
	case table.FilterLt:
		return "<", nil
	case table.FilterLtEq:
		return "<=", nil
	case table.FilterGt:
		return ">", nil
	case table.FilterGtEq:
		return ">=", nil
	default:
		return "", fmt.Errorf("filter op %s cannot be pushed down", op)
	}
}

func driverValue(v value.Value) any {
	switch v.Type() {
	case value.TypeNull:
		return nil
	case value.TypeBool:
		return v.BoolValue()
	case value.TypeInt16, value.TypeInt32, value.TypeInt64:
		return v.IntValue()
	case value.TypeUint64:
		return v.UintValue()
	case value.TypeFloat32, value.TypeFloat64:
		return v.FloatValue()
	case value.TypeBytes:
		return v.BytesValue()
	case value.TypeTimestamp:
		return v.TimeValue()
	default:
		return v.String()
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func pgType(dataType string) value.Type {
	switch strings.ToLower(dataType) {
	case "smallint":
		return value.TypeInt16
	case "integer":
		return value.TypeInt32
	case "bigint":
		return value.TypeInt64
	case "real":
		return value.TypeFloat32
	case "double precision", "numeric":
		return value.TypeFloat64
	case "boolean":
		return value.TypeBool
	case "bytea":
		return value.TypeBytes
	default:
		if strings.HasPrefix(strings.ToLower(dataType), "timestamp") {
			return value.TypeTimestamp
		}
		return value.TypeString
	}
}

// pgBatchReader drains a sql.Rows cursor batch by batch.
type pgBatchReader struct {
	schema    table.Schema
	rows      *sql.Rows
	batchSize int
	done      bool
}

func (r *pgBatchReader) Next(ctx context.Context) (table.Batch, error) {
	if r.done {
		return table.Batch{}, io.EOF
	}
	columns := make([][]value.Value, r.schema.NumFields())
	count := 0
	for count < r.batchSize {
		if err := ctx.Err(); err != nil {
			return table.Batch{}, err
		}
		if !r.rows.Next() {
			r.done = true
			if err := r.rows.Err(); err != nil {
				return table.Batch{}, fmt.Errorf("read postgres row: %w", err)
			}
			break
		}
		dest := make([]any, r.schema.NumFields())
		for i := range dest {
			var cell any
			dest[i] = &cell
		}
		if err := r.rows.Scan(dest...); err != nil {
			return table.Batch{}, fmt.Errorf("scan postgres row: %w", err)
		}
		for i, field := range r.schema.Fields {
			cell := *(dest[i].(*any))
			v, err := fromDriver(cell, field.Type)
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

func (r *pgBatchReader) Close() error { return r.rows.Close() }

// fromDriver maps a database/sql driver value onto the target scalar type.
func fromDriver(cell any, target value.Type) (value.Value, error) {
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
	default:
		return value.Null(), fmt.Errorf("unsupported driver value %T", cell)
	}
	converted, ok := value.Convert(v, target)
	if !ok {
		return value.Null(), fmt.Errorf("cannot read %s as %s", v.Type(), target)
	}
	return converted, nil
}
