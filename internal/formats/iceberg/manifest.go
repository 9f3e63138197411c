package iceberg

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hamba/avro/v2/ocf"

	"github.com/fedscan/fedscan/internal/location"
)

// Manifest entry status values from the Iceberg spec.
const (
	entryStatusExisting = 0
	entryStatusAdded    = 1
	entryStatusDeleted  = 2
)

// ManifestFile is one entry of a snapshot's manifest list.
type ManifestFile struct {
	Path            string
	Length          int64
	PartitionSpecID int32
	AddedSnapshotID int64
}

// DataFile is one live data file referenced by a manifest.
type DataFile struct {
	Path            string
	Format          string
	RecordCount     int64
	FileSizeInBytes int64
	SnapshotID      int64
}

// readManifestList decodes the avro manifest list a snapshot points at.
func readManifestList(ctx context.Context, resolver *location.Resolver, path string, opts location.ResolveOptions) ([]ManifestFile, error) {
	records, err := readAvro(ctx, resolver, path, opts)
	if err != nil {
		return nil, err
	}
	files := make([]ManifestFile, 0, len(records))
	for _, rec := range records {
		files = append(files, ManifestFile{
			Path:            getString(rec, "manifest_path"),
			Length:          getInt64(rec, "manifest_length"),
			PartitionSpecID: int32(getInt64(rec, "partition_spec_id")),
			AddedSnapshotID: getInt64(rec, "added_snapshot_id"),
		})
	}
	return files, nil
}

// readManifest decodes one manifest file and returns its live data files.
// Entries with deleted status are dropped.
func readManifest(ctx context.Context, resolver *location.Resolver, path string, opts location.ResolveOptions) ([]DataFile, error) {
	records, err := readAvro(ctx, resolver, path, opts)
	if err != nil {
		return nil, err
	}
	var files []DataFile
	for _, rec := range records {
		if getInt64(rec, "status") == entryStatusDeleted {
			continue
		}
		payload, ok := rec["data_file"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("manifest %q: entry has no data_file record", path)
		}
		files = append(files, DataFile{
			Path:            getString(payload, "file_path"),
			Format:          getString(payload, "file_format"),
			RecordCount:     getInt64(payload, "record_count"),
			FileSizeInBytes: getInt64(payload, "file_size_in_bytes"),
			SnapshotID:      getInt64(rec, "snapshot_id"),
		})
	}
	return files, nil
}

func readAvro(ctx context.Context, resolver *location.Resolver, path string, opts location.ResolveOptions) ([]map[string]any, error) {
	raw, err := readAll(ctx, resolver, path, opts)
	if err != nil {
		return nil, err
	}
	dec, err := ocf.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open avro container %q: %w", path, err)
	}
	var records []map[string]any
	for dec.HasNext() {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode avro record in %q: %w", path, err)
		}
		records = append(records, rec)
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("read avro container %q: %w", path, err)
	}
	return records, nil
}

// Avro unions decode as map[string]any wrapping the branch value, so the
// getters unwrap one level before converting.
func getString(rec map[string]any, key string) string {
	switch v := unwrapUnion(rec[key]).(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func getInt64(rec map[string]any, key string) int64 {
	switch v := unwrapUnion(rec[key]).(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func unwrapUnion(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	for _, inner := range m {
		return inner
	}
	return v
}
