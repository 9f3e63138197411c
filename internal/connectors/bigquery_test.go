package connectors

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/bigquery"

	"github.com/fedscan/fedscan/internal/credentials"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

func TestBigQueryRequiresTableCoordinates(t *testing.T) {
	r := NewRegistry(testDeps())
	opts := stringOpts(map[string]string{"project": "p", "dataset": "d"})
	_, err := r.Open(context.Background(), "bigquery", OpenRequest{Options: opts, Eager: true})
	if !errors.Is(err, options.ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
}

func TestBigQueryRequiresCredential(t *testing.T) {
	r := NewRegistry(testDeps())
	opts := stringOpts(map[string]string{"project": "p", "dataset": "d", "table": "t"})
	_, err := r.Open(context.Background(), "bigquery", OpenRequest{Options: opts, Eager: true})
	if !errors.Is(err, options.ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
}

func TestBigQueryRejectsWrongCredentialFamily(t *testing.T) {
	deps := testDeps()
	if _, err := deps.Credentials.Create(credentials.CreateInput{
		Name:     "pg",
		Provider: credentials.ProviderPostgres,
		Secret:   credentials.Secret{Provider: credentials.ProviderPostgres, ConnectionString: "postgres://"},
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	r := NewRegistry(deps)
	opts := stringOpts(map[string]string{
		"project": "p", "dataset": "d", "table": "t", "credential": "pg",
	})
	_, err := r.Open(context.Background(), "bigquery", OpenRequest{Options: opts, Eager: true})
	if !errors.Is(err, options.ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
}

func TestBQSchemaMapping(t *testing.T) {
	schema := bqSchema(bigquery.Schema{
		{Name: "id", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "score", Type: bigquery.FloatFieldType},
		{Name: "ok", Type: bigquery.BooleanFieldType},
		{Name: "at", Type: bigquery.TimestampFieldType},
		{Name: "blob", Type: bigquery.BytesFieldType},
		{Name: "label", Type: bigquery.StringFieldType},
	})
	want := []value.Type{
		value.TypeInt64, value.TypeFloat64, value.TypeBool,
		value.TypeTimestamp, value.TypeBytes, value.TypeString,
	}
	for i, typ := range want {
		if schema.Fields[i].Type != typ {
			t.Fatalf("field %d type = %s, want %s", i, schema.Fields[i].Type, typ)
		}
	}
	if schema.Fields[0].Nullable {
		t.Fatal("required field should not be nullable")
	}
}

func TestBQWhereRendersNamedParameters(t *testing.T) {
	schema := table.Schema{Fields: []table.Field{
		{Name: "id", Type: value.TypeInt64},
		{Name: "label", Type: value.TypeString, Nullable: true},
	}}
	where, params, err := bqWhere(schema, []table.Filter{
		{Column: "id", Op: table.FilterGtEq, Operand: value.Int64(5)},
		{Column: "label", Op: table.FilterIsNull},
	})
	if err != nil {
		t.Fatalf("bqWhere() error = %v", err)
	}
	if where != "`id` >= @p0 AND `label` IS NULL" {
		t.Fatalf("where = %q", where)
	}
	if len(params) != 1 || params[0].Name != "p0" || params[0].Value.(int64) != 5 {
		t.Fatalf("params = %+v", params)
	}
}
