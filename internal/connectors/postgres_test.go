package connectors

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

const pgSchemaQuery = `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = \$1 AND table_name = \$2
ORDER BY ordinal_position`

func expectUsersSchema(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(pgSchemaQuery).
		WithArgs("public", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable"}).
			AddRow("id", "bigint", "NO").
			AddRow("name", "text", "YES").
			AddRow("active", "boolean", "YES").
			AddRow("created_at", "timestamp with time zone", "YES"))
}

func TestPostgresSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()
	expectUsersSchema(mock)

	p := newPostgresProvider(db, "public", "users")
	schema, err := p.Schema(context.Background())
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	want := []struct {
		name     string
		typ      value.Type
		nullable bool
	}{
		{"id", value.TypeInt64, false},
		{"name", value.TypeString, true},
		{"active", value.TypeBool, true},
		{"created_at", value.TypeTimestamp, true},
	}
	for i, w := range want {
		f := schema.Fields[i]
		if f.Name != w.name || f.Type != w.typ || f.Nullable != w.nullable {
			t.Fatalf("field %d = %+v, want %+v", i, f, w)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresMissingRelation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()
	mock.ExpectQuery(pgSchemaQuery).
		WithArgs("public", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable"}))

	p := newPostgresProvider(db, "public", "ghost")
	if _, err := p.Schema(context.Background()); err == nil {
		t.Fatal("missing relation should fail")
	}
}

func TestPostgresScanPushesDownProjectionAndFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()
	expectUsersSchema(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "name" FROM "public"."users" WHERE "id" > $1 AND "active" IS NOT NULL`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(11), "alice").
			AddRow(int64(12), "bob"))

	p := newPostgresProvider(db, "public", "users")
	reader, err := p.Scan(context.Background(), table.ScanRequest{
		Projection: []string{"id", "name"},
		Filters: []table.Filter{
			{Column: "id", Op: table.FilterGt, Operand: value.Int64(10)},
			{Column: "active", Op: table.FilterIsNotNull},
		},
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	batch, err := reader.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if batch.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", batch.NumRows())
	}
	if batch.Columns[0][0].IntValue() != 11 || batch.Columns[1][1].StringValue() != "bob" {
		t.Fatalf("batch = %+v", batch.Columns)
	}
	if _, err := reader.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresFilterOnUnknownColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()
	expectUsersSchema(mock)

	p := newPostgresProvider(db, "public", "users")
	_, err = p.Scan(context.Background(), table.ScanRequest{
		Filters: []table.Filter{{Column: "ghost", Op: table.FilterEq, Operand: value.Int64(1)}},
	})
	if !errors.Is(err, table.ErrTypeMismatch) {
		t.Fatalf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestPostgresValueConversion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()
	expectUsersSchema(mock)

	created := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "name", "active", "created_at" FROM "public"."users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active", "created_at"}).
			AddRow(int64(1), "alice", true, created).
			AddRow(int64(2), nil, false, nil))

	p := newPostgresProvider(db, "public", "users")
	reader, err := p.Scan(context.Background(), table.ScanRequest{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	batch, err := reader.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if !batch.Columns[3][0].TimeValue().Equal(created) {
		t.Fatalf("created_at = %v", batch.Columns[3][0])
	}
	if !batch.Columns[1][1].IsNull() || !batch.Columns[3][1].IsNull() {
		t.Fatalf("null columns = %v / %v", batch.Columns[1][1], batch.Columns[3][1])
	}
	if batch.Columns[2][0].BoolValue() != true {
		t.Fatalf("active = %v", batch.Columns[2][0])
	}
}

func TestPostgresConnectorRequiresDSN(t *testing.T) {
	r := NewRegistry(testDeps())
	opts := stringOpts(map[string]string{"table": "users"})
	_, err := r.Open(context.Background(), "postgres", OpenRequest{Options: opts, Eager: true})
	if !errors.Is(err, options.ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
}
