// Package catalog is the session-facing surface of the layer: external table
// descriptors, credential DDL, and the table-function dispatch an embedding
// engine binds its SQL surface to.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/fedscan/fedscan/internal/connectors"
	"github.com/fedscan/fedscan/internal/credentials"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
)

var (
	ErrDuplicateTable = errors.New("catalog: duplicate table")
	ErrTableNotFound  = errors.New("catalog: table not found")
)

// ExternalTable is an immutable external table descriptor. Options hold the
// canonical option map including the credential reference; the secret itself
// stays in the credential store and is resolved at scan time, so replacing a
// credential takes effect without recreating the table.
type ExternalTable struct {
	Name     string
	Provider string
	Options  options.Map
}

type Catalog struct {
	registry *connectors.Registry
	creds    *credentials.Store
	logger   *slog.Logger

	mu     sync.RWMutex
	tables map[string]ExternalTable
}

func New(registry *connectors.Registry, creds *credentials.Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{
		registry: registry,
		creds:    creds,
		logger:   logger,
		tables:   map[string]ExternalTable{},
	}
}

// CreateExternalTable registers a descriptor after probing it: options are
// validated and locations resolved before the table exists, so a bad
// location fails at CREATE, not at first query.
func (c *Catalog) CreateExternalTable(ctx context.Context, def ExternalTable) error {
	return c.createTable(ctx, def, false)
}

// CreateOrReplaceExternalTable is CreateExternalTable with upsert semantics.
func (c *Catalog) CreateOrReplaceExternalTable(ctx context.Context, def ExternalTable) error {
	return c.createTable(ctx, def, true)
}

func (c *Catalog) createTable(ctx context.Context, def ExternalTable, orReplace bool) error {
	if def.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if def.Options == nil {
		def.Options = options.Map{}
	}

	probe, err := c.registry.Open(ctx, def.Provider, connectors.OpenRequest{
		Options: def.Options.Clone(),
		Eager:   true,
	})
	if err != nil {
		return err
	}
	if err := probe.Close(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[def.Name]; exists && !orReplace {
		return fmt.Errorf("%w: %q", ErrDuplicateTable, def.Name)
	}
	c.tables[def.Name] = def
	c.logger.Info("external table registered", "table", def.Name, "provider", def.Provider)
	return nil
}

func (c *Catalog) DropExternalTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[name]; !exists {
		return fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	delete(c.tables, name)
	return nil
}

// LookupExternalTable returns the descriptor for the name.
func (c *Catalog) LookupExternalTable(name string) (ExternalTable, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.tables[name]
	if !ok {
		return ExternalTable{}, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return def, nil
}

// ListExternalTables returns the registered descriptors in name order.
func (c *Catalog) ListExternalTables() []ExternalTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ExternalTable, 0, len(c.tables))
	for _, def := range c.tables {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// OpenTable builds a fresh scan provider for a registered table. Every call
// re-resolves locations and re-reads the credential, so replaced credentials
// and new glob matches are picked up.
func (c *Catalog) OpenTable(ctx context.Context, name string) (table.ScanProvider, error) {
	def, err := c.LookupExternalTable(name)
	if err != nil {
		return nil, err
	}
	provider, err := c.registry.Open(ctx, def.Provider, connectors.OpenRequest{
		Options: def.Options.Clone(),
		Eager:   true,
	})
	if err != nil {
		return nil, err
	}
	return instrument(provider, def.Provider), nil
}
