package credentials

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fedscan/fedscan/internal/options"
)

func awsInput(name, comment string) CreateInput {
	return CreateInput{
		Name:     name,
		Provider: ProviderAWS,
		Secret: Secret{
			Provider:        ProviderAWS,
			AccessKeyID:     "AKIAEXAMPLE",
			SecretAccessKey: "shhh",
		},
		Comment: comment,
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	store := NewStore()
	if _, err := store.Create(awsInput("c", "")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(awsInput("c", "")); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("second Create() error = %v, want ErrDuplicateName", err)
	}
}

func TestCreateOrReplaceKeepsIdentityAndUpdatesComment(t *testing.T) {
	store := NewStore()
	if _, err := store.CreateOrReplace(awsInput("c", "first")); err != nil {
		t.Fatalf("CreateOrReplace() error = %v", err)
	}
	if _, err := store.CreateOrReplace(awsInput("c", "second")); err != nil {
		t.Fatalf("CreateOrReplace() again error = %v", err)
	}
	list := store.List()
	if len(list) != 1 {
		t.Fatalf("List() len = %d, want 1", len(list))
	}
	if list[0].Comment != "second" {
		t.Fatalf("Comment = %q, want %q", list[0].Comment, "second")
	}
	if _, err := store.Lookup("c"); err != nil {
		t.Fatalf("Lookup() after replace error = %v", err)
	}
}

func TestLookupNotFound(t *testing.T) {
	store := NewStore()
	if _, err := store.Lookup("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrNotFound", err)
	}
}

func TestListIsRedactedAndSorted(t *testing.T) {
	store := NewStore()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := store.Create(awsInput(name, "")); err != nil {
			t.Fatalf("Create(%q) error = %v", name, err)
		}
	}
	list := store.List()
	if len(list) != 3 {
		t.Fatalf("List() len = %d", len(list))
	}
	for i, want := range []string{"alpha", "mid", "zeta"} {
		if list[i].Name != want {
			t.Fatalf("List()[%d].Name = %q, want %q", i, list[i].Name, want)
		}
	}
}

func TestRacingCreatesYieldExactlyOneSuccess(t *testing.T) {
	store := NewStore()
	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = store.Create(awsInput("raced", ""))
		}(i)
	}
	wg.Wait()
	successes, duplicates := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrDuplicateName):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || duplicates != racers-1 {
		t.Fatalf("successes = %d, duplicates = %d", successes, duplicates)
	}
}

func TestSecretNeverLeaksThroughSerialization(t *testing.T) {
	secret := Secret{Provider: ProviderAWS, AccessKeyID: "AKIA", SecretAccessKey: "topsecret"}
	raw, err := json.Marshal(secret)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), "topsecret") || strings.Contains(string(raw), "AKIA") {
		t.Fatalf("marshaled secret leaks payload: %s", raw)
	}
	if s := secret.String(); strings.Contains(s, "topsecret") {
		t.Fatalf("String() leaks payload: %s", s)
	}
}

func TestSecretFromOptions(t *testing.T) {
	opts, err := options.Parse(`access_key_id => 'AKIA', secret_access_key => 'k'`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	secret, err := SecretFromOptions(ProviderAWS, opts)
	if err != nil {
		t.Fatalf("SecretFromOptions() error = %v", err)
	}
	if secret.AccessKeyID != "AKIA" || secret.SecretAccessKey != "k" {
		t.Fatalf("secret = %+v", secret)
	}

	missing, err := options.Parse(`access_key_id => 'AKIA'`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := SecretFromOptions(ProviderAWS, missing); !errors.Is(err, options.ErrInvalidOption) {
		t.Fatalf("SecretFromOptions() error = %v, want ErrInvalidOption", err)
	}

	if _, err := ParseProvider("ftp"); !errors.Is(err, options.ErrInvalidOption) {
		t.Fatalf("ParseProvider() error = %v, want ErrInvalidOption", err)
	}
}
