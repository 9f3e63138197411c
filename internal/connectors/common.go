package connectors

import (
	"fmt"

	"github.com/fedscan/fedscan/internal/credentials"
	"github.com/fedscan/fedscan/internal/location"
	"github.com/fedscan/fedscan/internal/options"
)

// resolveCredential looks up the credential named by the "credential" option
// and checks its provider family when want is non-empty.
func resolveCredential(deps Deps, opts options.Map, want credentials.Provider) (*credentials.Credential, error) {
	name, ok, err := opts.String("credential")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	cred, err := deps.Credentials.Lookup(name)
	if err != nil {
		return nil, err
	}
	if want != "" && cred.Provider != want {
		return nil, fmt.Errorf("%w: credential %q is %s, want %s",
			options.ErrInvalidOption, name, cred.Provider, want)
	}
	return &cred, nil
}

// resolveOptions builds the per-resolve state shared by the location-backed
// connectors.
func resolveOptions(deps Deps, opts options.Map) (location.ResolveOptions, error) {
	cred, err := resolveCredential(deps, opts, "")
	if err != nil {
		return location.ResolveOptions{}, err
	}
	region, _, err := opts.String("region")
	if err != nil {
		return location.ResolveOptions{}, err
	}
	return location.ResolveOptions{Credential: cred, Region: region}, nil
}

// locationList reads the required "location" option as an ordered list.
func locationList(opts options.Map) ([]string, error) {
	list, ok, err := opts.StringList("location")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: missing required option %q", options.ErrInvalidOption, "location")
	}
	if len(list) == 0 {
		return nil, location.ErrEmptyLocationList
	}
	return list, nil
}

// inferRowsOption reads the optional "infer_rows" bound, rejecting
// negatives. Zero, explicit or absent, means the connector's default bound;
// there is no way to sample nothing.
func inferRowsOption(opts options.Map) (int, error) {
	n, ok, err := opts.Int("infer_rows")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: option %q must be >= 0, got %d", options.ErrInvalidOption, "infer_rows", n)
	}
	return int(n), nil
}
