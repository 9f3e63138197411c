package connectors

import (
	"context"
	"fmt"

	"github.com/fedscan/fedscan/internal/formats/iceberg"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
)

// Iceberg surface selector. The default scans table rows; the metadata modes
// back the iceberg_snapshots and iceberg_data_files table functions.
const (
	IcebergModeScan      = "scan"
	IcebergModeSnapshots = "snapshots"
	IcebergModeDataFiles = "data_files"
)

type icebergConnector struct{}

func (icebergConnector) Name() string { return "iceberg" }

func (icebergConnector) Open(ctx context.Context, deps Deps, req OpenRequest) (table.ScanProvider, error) {
	if err := req.Options.Validate([]string{"location"}, []string{"credential", "region", "snapshot_id", "mode"}); err != nil {
		return nil, err
	}
	root, err := req.Options.RequireString("location")
	if err != nil {
		return nil, err
	}
	ropts, err := resolveOptions(deps, req.Options)
	if err != nil {
		return nil, err
	}
	snapshotID, _, err := req.Options.Int("snapshot_id")
	if err != nil {
		return nil, err
	}
	mode := IcebergModeScan
	if raw, ok, err := req.Options.String("mode"); err != nil {
		return nil, err
	} else if ok {
		switch raw {
		case IcebergModeScan, IcebergModeSnapshots, IcebergModeDataFiles:
			mode = raw
		default:
			return nil, fmt.Errorf("%w: unknown iceberg mode %q", options.ErrInvalidOption, raw)
		}
	}

	return deferred(ctx, req.Eager, func(ctx context.Context) (table.ScanProvider, error) {
		tbl, err := iceberg.Open(ctx, deps.Resolver, root, ropts)
		if err != nil {
			return nil, err
		}
		switch mode {
		case IcebergModeSnapshots:
			return tbl.Snapshots(), nil
		case IcebergModeDataFiles:
			return tbl.DataFilesOf(snapshotID), nil
		default:
			return tbl.ScanOf(snapshotID), nil
		}
	})
}
