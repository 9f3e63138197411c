package iceberg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

// Table is an opened Iceberg table rooted at a single location. Opening
// reads the metadata eagerly so a bad root fails fast.
type Table struct {
	root     string
	resolver *location.Resolver
	opts     location.ResolveOptions
	meta     Metadata
}

func Open(ctx context.Context, resolver *location.Resolver, root string, opts location.ResolveOptions) (*Table, error) {
	meta, err := loadMetadata(ctx, resolver, root, opts)
	if err != nil {
		return nil, err
	}
	return &Table{root: root, resolver: resolver, opts: opts, meta: meta}, nil
}

func (t *Table) Metadata() Metadata { return t.meta }

// DataFiles walks the manifest list of one snapshot and returns every live
// data file. snapshotID zero selects the current snapshot.
func (t *Table) DataFiles(ctx context.Context, snapshotID int64) ([]DataFile, error) {
	snap, err := t.meta.FindSnapshot(snapshotID)
	if err != nil {
		return nil, err
	}
	manifests, err := readManifestList(ctx, t.resolver, snap.ManifestList, t.opts)
	if err != nil {
		return nil, err
	}
	var files []DataFile
	for _, m := range manifests {
		entries, err := readManifest(ctx, t.resolver, m.Path, t.opts)
		if err != nil {
			return nil, err
		}
		files = append(files, entries...)
	}
	return files, nil
}

// SnapshotsProvider lists the table's snapshot history.
type SnapshotsProvider struct {
	table *Table
}

func (t *Table) Snapshots() *SnapshotsProvider { return &SnapshotsProvider{table: t} }

func snapshotsSchema() table.Schema {
	return table.Schema{Fields: []table.Field{
		{Name: "snapshot_id", Type: value.TypeInt64},
		{Name: "parent_snapshot_id", Type: value.TypeInt64, Nullable: true},
		{Name: "sequence_number", Type: value.TypeInt64},
		{Name: "committed_at", Type: value.TypeTimestamp},
		{Name: "manifest_list", Type: value.TypeString},
		{Name: "summary", Type: value.TypeString, Nullable: true},
	}}
}

func (p *SnapshotsProvider) Schema(ctx context.Context) (table.Schema, error) {
	return snapshotsSchema(), nil
}

func (p *SnapshotsProvider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	rows := make([][]value.Value, 0, len(p.table.meta.Snapshots))
	for _, s := range p.table.meta.Snapshots {
		parent := value.Null()
		if s.ParentSnapshotID != nil {
			parent = value.Int64(*s.ParentSnapshotID)
		}
		summary := value.Null()
		if len(s.Summary) > 0 {
			encoded, err := json.Marshal(s.Summary)
			if err != nil {
				return nil, fmt.Errorf("encode snapshot summary: %w", err)
			}
			summary = value.String(string(encoded))
		}
		rows = append(rows, []value.Value{
			value.Int64(s.SnapshotID),
			parent,
			value.Int64(s.SequenceNumber),
			value.Timestamp(time.UnixMilli(s.TimestampMs).UTC()),
			value.String(s.ManifestList),
			summary,
		})
	}
	return table.NewBatchReader(snapshotsSchema(), table.NewSliceIterator(rows), req)
}

func (p *SnapshotsProvider) Close() error { return nil }

// DataFilesProvider lists the live data files of one snapshot.
type DataFilesProvider struct {
	table      *Table
	snapshotID int64
}

func (t *Table) DataFilesOf(snapshotID int64) *DataFilesProvider {
	return &DataFilesProvider{table: t, snapshotID: snapshotID}
}

func dataFilesSchema() table.Schema {
	return table.Schema{Fields: []table.Field{
		{Name: "file_path", Type: value.TypeString},
		{Name: "file_format", Type: value.TypeString},
		{Name: "record_count", Type: value.TypeInt64},
		{Name: "file_size_bytes", Type: value.TypeInt64},
		{Name: "snapshot_id", Type: value.TypeInt64, Nullable: true},
	}}
}

func (p *DataFilesProvider) Schema(ctx context.Context) (table.Schema, error) {
	return dataFilesSchema(), nil
}

func (p *DataFilesProvider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	files, err := p.table.DataFiles(ctx, p.snapshotID)
	if err != nil {
		return nil, err
	}
	rows := make([][]value.Value, 0, len(files))
	for _, f := range files {
		snapshot := value.Null()
		if f.SnapshotID != 0 {
			snapshot = value.Int64(f.SnapshotID)
		}
		rows = append(rows, []value.Value{
			value.String(f.Path),
			value.String(f.Format),
			value.Int64(f.RecordCount),
			value.Int64(f.FileSizeInBytes),
			snapshot,
		})
	}
	return table.NewBatchReader(dataFilesSchema(), table.NewSliceIterator(rows), req)
}

func (p *DataFilesProvider) Close() error { return nil }

// ScanProvider reads the table's rows out of its parquet data files.
type ScanProvider struct {
	table      *Table
	snapshotID int64
}

func (t *Table) ScanOf(snapshotID int64) *ScanProvider {
	return &ScanProvider{table: t, snapshotID: snapshotID}
}

func (p *ScanProvider) Schema(ctx context.Context) (table.Schema, error) {
	def, err := p.table.meta.CurrentSchema()
	if err != nil {
		return table.Schema{}, err
	}
	return def.TableSchema(), nil
}

func (p *ScanProvider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	schema, err := p.Schema(ctx)
	if err != nil {
		return nil, err
	}
	files, err := p.table.DataFiles(ctx, p.snapshotID)
	if err != nil {
		return nil, err
	}
	it := &dataFileIterator{
		schema:   schema,
		resolver: p.table.resolver,
		opts:     p.table.opts,
		files:    files,
	}
	return table.NewBatchReader(schema, it, req)
}

func (p *ScanProvider) Close() error { return nil }
