// Package connectors maps provider keywords onto scan providers. A connector
// validates its options before any I/O, resolves the named credential, and
// builds a table.ScanProvider for the external source.
package connectors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fedscan/fedscan/internal/config"
	"github.com/fedscan/fedscan/internal/credentials"
	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Deps carries the shared services connectors draw on.
type Deps struct {
	Resolver    *location.Resolver
	Credentials *credentials.Store
	Config      config.Config
	Logger      *slog.Logger
}

// OpenRequest is one provider construction. Eager forces resolution and
// probing at construction time; the catalog DDL path sets it so a bad
// location fails at CREATE, while inline table-function calls defer to the
// first scan.
type OpenRequest struct {
	Options options.Map
	Eager   bool
}

// Connector builds scan providers for one provider keyword.
type Connector interface {
	Name() string
	Open(ctx context.Context, deps Deps, req OpenRequest) (table.ScanProvider, error)
}

// Registry is the provider keyword lookup table. Safe for concurrent use.
type Registry struct {
	deps Deps

	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry builds a registry with every built-in connector registered.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{deps: deps, connectors: map[string]Connector{}}
	for _, c := range []Connector{
		&ndjsonConnector{},
		&excelConnector{},
		&blobConnector{},
		&icebergConnector{},
		&postgresConnector{},
		&bigqueryConnector{},
	} {
		r.connectors[c.Name()] = c
	}
	return r
}

// Register adds or replaces a connector. Host engines hang their own
// connectors here.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Name()] = c
}

func (r *Registry) Lookup(name string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return c, nil
}

// Providers returns the registered provider keywords, unsorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	return names
}

// Open validates and constructs a provider for the named connector.
func (r *Registry) Open(ctx context.Context, provider string, req OpenRequest) (table.ScanProvider, error) {
	c, err := r.Lookup(provider)
	if err != nil {
		return nil, err
	}
	p, err := c.Open(ctx, r.deps, req)
	if err != nil {
		return nil, err
	}
	r.deps.Logger.Debug("opened connector", "provider", provider, "eager", req.Eager)
	return p, nil
}

// lazyProvider defers provider construction to first use. Inline table
// functions resolve their locations at the first schema or scan call rather
// than at parse time.
type lazyProvider struct {
	build func(ctx context.Context) (table.ScanProvider, error)

	mu    sync.Mutex
	inner table.ScanProvider
}

func deferred(ctx context.Context, eager bool, build func(ctx context.Context) (table.ScanProvider, error)) (table.ScanProvider, error) {
	if eager {
		return build(ctx)
	}
	return &lazyProvider{build: build}, nil
}

func (l *lazyProvider) ensure(ctx context.Context) (table.ScanProvider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner == nil {
		inner, err := l.build(ctx)
		if err != nil {
			return nil, err
		}
		l.inner = inner
	}
	return l.inner, nil
}

func (l *lazyProvider) Schema(ctx context.Context) (table.Schema, error) {
	inner, err := l.ensure(ctx)
	if err != nil {
		return table.Schema{}, err
	}
	return inner.Schema(ctx)
}

func (l *lazyProvider) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	inner, err := l.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Scan(ctx, req)
}

func (l *lazyProvider) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner == nil {
		return nil
	}
	return l.inner.Close()
}
