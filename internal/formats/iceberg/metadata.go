// Package iceberg reads Iceberg tables from object storage: table metadata,
// snapshot history, manifest lists, and the parquet data files they point to.
// All access is by point read; the package never lists a metadata directory.
package iceberg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

// ErrNoValidTable reports a root that holds no readable Iceberg metadata.
var ErrNoValidTable = errors.New("no valid iceberg table")

// Metadata mirrors the parts of the table metadata file this layer reads.
// Both format v1 and v2 layouts are accepted.
type Metadata struct {
	FormatVersion     int               `json:"format-version"`
	TableUUID         string            `json:"table-uuid"`
	Location          string            `json:"location"`
	LastUpdatedMs     int64             `json:"last-updated-ms"`
	CurrentSnapshotID int64             `json:"current-snapshot-id"`
	Snapshots         []Snapshot        `json:"snapshots"`
	CurrentSchemaID   int               `json:"current-schema-id"`
	Schemas           []SchemaDef       `json:"schemas"`
	SchemaV1          *SchemaDef        `json:"schema"`
	Properties        map[string]string `json:"properties"`
}

type Snapshot struct {
	SnapshotID       int64             `json:"snapshot-id"`
	ParentSnapshotID *int64            `json:"parent-snapshot-id"`
	SequenceNumber   int64             `json:"sequence-number"`
	TimestampMs      int64             `json:"timestamp-ms"`
	ManifestList     string            `json:"manifest-list"`
	Summary          map[string]string `json:"summary"`
}

type SchemaDef struct {
	SchemaID int           `json:"schema-id"`
	Fields   []SchemaField `json:"fields"`
}

type SchemaField struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Required bool            `json:"required"`
	Type     json.RawMessage `json:"type"`
}

// CurrentSchema picks the schema the current metadata declares: the schema
// matching current-schema-id in v2, or the inline schema in v1.
func (m Metadata) CurrentSchema() (SchemaDef, error) {
	for _, s := range m.Schemas {
		if s.SchemaID == m.CurrentSchemaID {
			return s, nil
		}
	}
	if m.SchemaV1 != nil {
		return *m.SchemaV1, nil
	}
	if len(m.Schemas) > 0 {
		return m.Schemas[0], nil
	}
	return SchemaDef{}, fmt.Errorf("%w: metadata declares no schema", ErrNoValidTable)
}

// FindSnapshot returns the snapshot with the given id, or the current
// snapshot when id is zero.
func (m Metadata) FindSnapshot(id int64) (Snapshot, error) {
	if id == 0 {
		id = m.CurrentSnapshotID
	}
	for _, s := range m.Snapshots {
		if s.SnapshotID == id {
			return s, nil
		}
	}
	return Snapshot{}, fmt.Errorf("snapshot %d not found", id)
}

// TableSchema maps the Iceberg schema onto the scalar model. Nested and
// unrecognized types degrade to string.
func (s SchemaDef) TableSchema() table.Schema {
	fields := make([]table.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = table.Field{
			Name:     f.Name,
			Type:     fieldType(f.Type),
			Nullable: !f.Required,
		}
	}
	return table.Schema{Fields: fields}
}

func fieldType(raw json.RawMessage) value.Type {
	var primitive string
	if err := json.Unmarshal(raw, &primitive); err != nil {
		// struct, list, or map
		return value.TypeString
	}
	switch {
	case primitive == "boolean":
		return value.TypeBool
	case primitive == "int", primitive == "date":
		return value.TypeInt32
	case primitive == "long":
		return value.TypeInt64
	case primitive == "float":
		return value.TypeFloat32
	case primitive == "double":
		return value.TypeFloat64
	case primitive == "string", primitive == "uuid":
		return value.TypeString
	case primitive == "binary", strings.HasPrefix(primitive, "fixed"):
		return value.TypeBytes
	case strings.HasPrefix(primitive, "timestamp"):
		return value.TypeTimestamp
	default:
		return value.TypeString
	}
}

// loadMetadata reads version-hint.text under <root>/metadata and then the
// v<N>.metadata.json it names. A missing hint or metadata file means the
// root holds no table.
func loadMetadata(ctx context.Context, resolver *location.Resolver, root string, opts location.ResolveOptions) (Metadata, error) {
	hintPath := location.Join(root, "metadata", "version-hint.text")
	hint, err := readAll(ctx, resolver, hintPath, opts)
	if err != nil {
		if errors.Is(err, location.ErrPathNotFound) {
			return Metadata{}, fmt.Errorf("%w: missing %q", ErrNoValidTable, hintPath)
		}
		return Metadata{}, err
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(hint)))
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: malformed version hint %q", ErrNoValidTable, strings.TrimSpace(string(hint)))
	}

	metaPath := location.Join(root, "metadata", fmt.Sprintf("v%d.metadata.json", version))
	raw, err := readAll(ctx, resolver, metaPath, opts)
	if err != nil {
		if errors.Is(err, location.ErrPathNotFound) {
			return Metadata{}, fmt.Errorf("%w: missing %q", ErrNoValidTable, metaPath)
		}
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse %q: %w", metaPath, err)
	}
	return meta, nil
}

func readAll(ctx context.Context, resolver *location.Resolver, path string, opts location.ResolveOptions) ([]byte, error) {
	reader, err := resolver.Open(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	cerr := reader.Close()
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	if cerr != nil {
		return nil, cerr
	}
	return data, nil
}
