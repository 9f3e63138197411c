package catalog

import (
	"context"
	"fmt"

	"github.com/fedscan/fedscan/internal/connectors"
	"github.com/fedscan/fedscan/internal/funcs"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

// tableFunctions maps function names onto a connector plus fixed options.
// Aliases share an entry.
var tableFunctions = map[string]struct {
	provider string
	mode     string
	// credArg admits an optional second positional argument naming the
	// credential, matching iceberg_scan(location, credential).
	credArg bool
}{
	"read_ndjson":        {provider: "ndjson"},
	"ndjson_scan":        {provider: "ndjson"},
	"read_excel":         {provider: "excel"},
	"read_xlsx":          {provider: "excel"},
	"read_blob":          {provider: "blob"},
	"iceberg_scan":       {provider: "iceberg", mode: connectors.IcebergModeScan, credArg: true},
	"iceberg_snapshots":  {provider: "iceberg", mode: connectors.IcebergModeSnapshots, credArg: true},
	"iceberg_data_files": {provider: "iceberg", mode: connectors.IcebergModeDataFiles, credArg: true},
}

// TableFunction dispatches an inline table-function call. The first
// positional argument is the location; the iceberg functions accept the
// credential name as an optional second one. Named options follow in opts.
// Resolution is lazy: a bad location surfaces at the first schema or scan
// call, not here.
func (c *Catalog) TableFunction(ctx context.Context, name string, args []value.Value, opts options.Map) (table.ScanProvider, error) {
	fn, ok := tableFunctions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", funcs.ErrUnknownFunction, name)
	}
	maxArgs := 1
	if fn.credArg {
		maxArgs = 2
	}
	if len(args) < 1 || len(args) > maxArgs {
		if maxArgs == 1 {
			return nil, fmt.Errorf("%w: %s takes 1 argument, got %d", funcs.ErrArity, name, len(args))
		}
		return nil, fmt.Errorf("%w: %s takes 1 or 2 arguments, got %d", funcs.ErrArity, name, len(args))
	}

	merged := options.Map{}
	if opts != nil {
		merged = opts.Clone()
	}
	merged.Set("location", args[0])
	if len(args) == 2 {
		merged.Set("credential", args[1])
	}
	if fn.mode != "" {
		merged.Set("mode", value.String(fn.mode))
	}

	provider, err := c.registry.Open(ctx, fn.provider, connectors.OpenRequest{Options: merged})
	if err != nil {
		return nil, err
	}
	return instrument(provider, fn.provider), nil
}

// ScalarFunction evaluates one of the deterministic scalar functions.
func (c *Catalog) ScalarFunction(name string, args []value.Value) (value.Value, error) {
	return funcs.Call(name, args)
}
