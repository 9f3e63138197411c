package connectors

import (
	"context"
	"fmt"

	"github.com/fedscan/fedscan/internal/formats/xlsx"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
)

type excelConnector struct{}

func (excelConnector) Name() string { return "excel" }

func (excelConnector) Open(ctx context.Context, deps Deps, req OpenRequest) (table.ScanProvider, error) {
	if err := req.Options.Validate([]string{"location"}, []string{"credential", "region", "sheet_name", "has_header", "infer_rows"}); err != nil {
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
	sheet, _, err := req.Options.String("sheet_name")
	if err != nil {
		return nil, err
	}
	hasHeader := true
	if b, ok, err := req.Options.Bool("has_header"); err != nil {
		return nil, err
	} else if ok {
		hasHeader = b
	}
	inferRows, err := inferRowsOption(req.Options)
	if err != nil {
		return nil, err
	}

	return deferred(ctx, req.Eager, func(ctx context.Context) (table.ScanProvider, error) {
		sources, err := deps.Resolver.Resolve(ctx, locs, ropts)
		if err != nil {
			return nil, err
		}
		if len(sources) != 1 {
			return nil, fmt.Errorf("%w: excel expects exactly one file, location matched %d",
				options.ErrInvalidOption, len(sources))
		}
		return xlsx.NewProvider(sources[0], xlsx.Options{
			Sheet:     sheet,
			HasHeader: hasHeader,
			InferRows: inferRows,
		}), nil
	})
}
