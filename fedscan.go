// Package fedscan is the external-data access layer of an analytical SQL
// engine: named credentials, location resolution, format readers, a
// connector registry, and deterministic hash functions. A host engine embeds
// a Runtime and binds its SQL surface to the catalog.
//
// Runtimes are explicitly constructed and fully isolated from each other;
// there are no package-level singletons, so tests and multi-tenant hosts can
// run several side by side.
package fedscan

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/fedscan/fedscan/internal/catalog"
	"github.com/fedscan/fedscan/internal/config"
	"github.com/fedscan/fedscan/internal/connectors"
	"github.com/fedscan/fedscan/internal/credentials"
	"github.com/fedscan/fedscan/internal/funcs"
	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/observability"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

// Re-exported contracts. Host engines program against these without
// importing the internal packages.
type (
	Schema        = table.Schema
	Field         = table.Field
	Batch         = table.Batch
	ScanRequest   = table.ScanRequest
	Filter        = table.Filter
	ScanProvider  = table.ScanProvider
	BatchReader   = table.BatchReader
	Value         = value.Value
	Options       = options.Map
	ExternalTable = catalog.ExternalTable
	Connector     = connectors.Connector
)

// ParseOptions parses an option list in either the `key = value` or
// `key => value` spelling into the canonical map.
func ParseOptions(input string) (Options, error) {
	return options.Parse(input)
}

// Runtime owns one session's external-data state: the credential store, the
// connector registry, and the catalog.
type Runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	creds    *credentials.Store
	registry *connectors.Registry
	catalog  *catalog.Catalog
}

// New builds a runtime from explicit configuration. A nil log writer
// discards logs.
func New(cfg config.Config, logWriter io.Writer) *Runtime {
	logger := observability.NewLogger(cfg, logWriter)
	creds := credentials.NewStore()
	resolver := location.NewResolver(location.Config{
		S3Endpoint:  cfg.S3.Endpoint,
		S3UseSSL:    cfg.S3.UseSSL,
		HTTPTimeout: cfg.HTTP.FetchTimeout,
	})
	registry := connectors.NewRegistry(connectors.Deps{
		Resolver:    resolver,
		Credentials: creds,
		Config:      cfg,
		Logger:      logger,
	})
	return &Runtime{
		cfg:      cfg,
		logger:   logger,
		creds:    creds,
		registry: registry,
		catalog:  catalog.New(registry, creds, logger),
	}
}

// NewFromEnv builds a runtime configured from FEDSCAN_* environment
// variables, logging to stderr.
func NewFromEnv() (*Runtime, error) {
	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	return New(cfg, os.Stderr), nil
}

func (r *Runtime) Catalog() *catalog.Catalog { return r.catalog }

func (r *Runtime) Credentials() *credentials.Store { return r.creds }

func (r *Runtime) Registry() *connectors.Registry { return r.registry }

func (r *Runtime) Config() config.Config { return r.cfg }

// Scan opens a registered external table and streams it in one call. Thin
// convenience over Catalog().OpenTable for hosts that do not hold providers.
func (r *Runtime) Scan(ctx context.Context, tableName string, req ScanRequest) (Schema, [][]Value, error) {
	provider, err := r.catalog.OpenTable(ctx, tableName)
	if err != nil {
		return Schema{}, nil, err
	}
	defer func() { _ = provider.Close() }()
	reader, err := provider.Scan(ctx, req)
	if err != nil {
		return Schema{}, nil, err
	}
	return table.ReadAll(ctx, reader)
}

// Scalar evaluates a deterministic scalar function by name.
func (r *Runtime) Scalar(name string, args []Value) (Value, error) {
	return funcs.Call(name, args)
}
