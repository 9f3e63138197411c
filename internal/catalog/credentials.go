package catalog

import (
	"context"

	"github.com/fedscan/fedscan/internal/credentials"
	"github.com/fedscan/fedscan/internal/observability"
	"github.com/fedscan/fedscan/internal/options"
	"github.com/fedscan/fedscan/internal/table"
	"github.com/fedscan/fedscan/internal/value"
)

// CreateCredential runs the CREATE CREDENTIALS path: provider keyword,
// provider-specific option validation, store insert.
func (c *Catalog) CreateCredential(name, provider, comment string, opts options.Map, orReplace bool) (credentials.Credential, error) {
	p, err := credentials.ParseProvider(provider)
	if err != nil {
		return credentials.Credential{}, err
	}
	secret, err := credentials.SecretFromOptions(p, opts)
	if err != nil {
		return credentials.Credential{}, err
	}
	in := credentials.CreateInput{Name: name, Provider: p, Secret: secret, Comment: comment}
	var cred credentials.Credential
	if orReplace {
		cred, err = c.creds.CreateOrReplace(in)
	} else {
		cred, err = c.creds.Create(in)
	}
	if err != nil {
		return credentials.Credential{}, err
	}
	op := "create"
	if orReplace {
		op = "create_or_replace"
	}
	observability.ObserveCredentialOp(op)
	c.logger.Info("credential stored", "name", name, "provider", provider)
	return cred, nil
}

func (c *Catalog) DropCredential(name string) error {
	if err := c.creds.Drop(name); err != nil {
		return err
	}
	observability.ObserveCredentialOp("drop")
	return nil
}

func credentialsViewSchema() table.Schema {
	return table.Schema{Fields: []table.Field{
		{Name: "credentials_name", Type: value.TypeString},
		{Name: "provider", Type: value.TypeString},
		{Name: "comment", Type: value.TypeString, Nullable: true},
	}}
}

// credentialsView lists the stored credentials redacted, in name order. The
// secret payload never enters the row set.
type credentialsView struct {
	creds *credentials.Store
}

// CredentialsView returns the provider backing the credentials system view.
func (c *Catalog) CredentialsView() table.ScanProvider {
	return &credentialsView{creds: c.creds}
}

func (v *credentialsView) Schema(ctx context.Context) (table.Schema, error) {
	return credentialsViewSchema(), nil
}

func (v *credentialsView) Scan(ctx context.Context, req table.ScanRequest) (table.BatchReader, error) {
	listed := v.creds.List()
	rows := make([][]value.Value, 0, len(listed))
	for _, cred := range listed {
		comment := value.Null()
		if cred.Comment != "" {
			comment = value.String(cred.Comment)
		}
		rows = append(rows, []value.Value{
			value.String(cred.Name),
			value.String(string(cred.Provider)),
			comment,
		})
	}
	return table.NewBatchReader(credentialsViewSchema(), table.NewSliceIterator(rows), req)
}

func (v *credentialsView) Close() error { return nil }
