// Package credentials implements the named credential store. Secrets are
// provider-tagged opaque payloads; the only externally visible view is the
// redacted one.
package credentials

import (
	"errors"
	"fmt"

	"github.com/fedscan/fedscan/internal/options"
)

var (
	ErrDuplicateName = errors.New("credentials: duplicate name")
	ErrNotFound      = errors.New("credentials: not found")
)

// Provider identifies the backend family a credential authenticates against.
type Provider string

const (
	ProviderAWS      Provider = "aws"
	ProviderGCP      Provider = "gcp"
	ProviderAzure    Provider = "azure"
	ProviderPostgres Provider = "postgres"
)

// ParseProvider validates a provider keyword.
func ParseProvider(raw string) (Provider, error) {
	switch Provider(raw) {
	case ProviderAWS, ProviderGCP, ProviderAzure, ProviderPostgres:
		return Provider(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown credential provider %q", options.ErrInvalidOption, raw)
	}
}

// Secret is the provider-specific payload. Only the fields matching the
// provider are populated. It deliberately renders as an opaque marker so a
// stray log line or JSON encoding cannot leak key material.
type Secret struct {
	Provider Provider

	// aws
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// gcp
	ServiceAccountKey string

	// azure
	AccountName string
	AccessKey   string

	// postgres
	ConnectionString string
}

func (s Secret) String() string { return "secret(" + string(s.Provider) + ")" }

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// SecretFromOptions builds and validates a secret payload from a canonical
// option map.
func SecretFromOptions(provider Provider, opts options.Map) (Secret, error) {
	secret := Secret{Provider: provider}
	switch provider {
	case ProviderAWS:
		if err := opts.Validate([]string{"access_key_id", "secret_access_key"}, []string{"session_token"}); err != nil {
			return Secret{}, err
		}
		var err error
		if secret.AccessKeyID, err = opts.RequireString("access_key_id"); err != nil {
			return Secret{}, err
		}
		if secret.SecretAccessKey, err = opts.RequireString("secret_access_key"); err != nil {
			return Secret{}, err
		}
		secret.SessionToken, _, _ = opts.String("session_token")
	case ProviderGCP:
		if err := opts.Validate([]string{"service_account_key"}, nil); err != nil {
			return Secret{}, err
		}
		key, err := opts.RequireString("service_account_key")
		if err != nil {
			return Secret{}, err
		}
		secret.ServiceAccountKey = key
	case ProviderAzure:
		if err := opts.Validate([]string{"account_name", "access_key"}, nil); err != nil {
			return Secret{}, err
		}
		var err error
		if secret.AccountName, err = opts.RequireString("account_name"); err != nil {
			return Secret{}, err
		}
		if secret.AccessKey, err = opts.RequireString("access_key"); err != nil {
			return Secret{}, err
		}
	case ProviderPostgres:
		if err := opts.Validate([]string{"connection_string"}, nil); err != nil {
			return Secret{}, err
		}
		dsn, err := opts.RequireString("connection_string")
		if err != nil {
			return Secret{}, err
		}
		secret.ConnectionString = dsn
	default:
		return Secret{}, fmt.Errorf("%w: unknown credential provider %q", options.ErrInvalidOption, provider)
	}
	return secret, nil
}

// Credential is a named secret. Name is unique and case-sensitive.
type Credential struct {
	Name     string
	Provider Provider
	Secret   Secret
	Comment  string
}

// Redacted is the catalog-visible projection of a credential. The secret
// payload never crosses this boundary.
type Redacted struct {
	Name     string
	Provider Provider
	Comment  string
}

func (c Credential) Redact() Redacted {
	return Redacted{Name: c.Name, Provider: c.Provider, Comment: c.Comment}
}
