package connectors

import (
	"context"

	"github.com/fedscan/fedscan/internal/formats/blob"
	"github.com/fedscan/fedscan/internal/table"
)

type blobConnector struct{}

func (blobConnector) Name() string { return "blob" }

func (blobConnector) Open(ctx context.Context, deps Deps, req OpenRequest) (table.ScanProvider, error) {
	if err := req.Options.Validate([]string{"location"}, []string{"credential", "region"}); err != nil {
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

	return deferred(ctx, req.Eager, func(ctx context.Context) (table.ScanProvider, error) {
		sources, err := deps.Resolver.Resolve(ctx, locs, ropts)
		if err != nil {
			return nil, err
		}
		return blob.NewProvider(sources)
	})
}
