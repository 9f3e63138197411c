package connectors

import (
	"context"

	"github.com/fedscan/fedscan/internal/formats/ndjson"
	"github.com/fedscan/fedscan/internal/table"
)

type ndjsonConnector struct{}

func (ndjsonConnector) Name() string { return "ndjson" }

func (ndjsonConnector) Open(ctx context.Context, deps Deps, req OpenRequest) (table.ScanProvider, error) {
	if err := req.Options.Validate([]string{"location"}, []string{"credential", "region", "infer_rows"}); err != nil {
		return nil, err
	}
	locs, err := locationList(req.Options)
	if err != nil {
		return nil, err
	}
	ropts, err := resolveOptions(deps, req.Options)
	if err != nil {
		return nil, err
	}
	inferRows, err := inferRowsOption(req.Options)
	if err != nil {
		return nil, err
	}
	if inferRows == 0 {
		inferRows = deps.Config.NDJSON.InferRows
	}

	return deferred(ctx, req.Eager, func(ctx context.Context) (table.ScanProvider, error) {
		sources, err := deps.Resolver.Resolve(ctx, locs, ropts)
		if err != nil {
			return nil, err
		}
		return ndjson.NewProvider(sources, ndjson.Options{InferRows: inferRows})
	})
}
