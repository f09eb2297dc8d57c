package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/aihub/pkg/validation"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the identifier used for all aihub secrets in the system keyring.
	ServiceName = "aihub"

	indexKey = "__aihub_index__"
)

// ErrSecretNotFound is returned when a named secret does not exist
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore keeps named secrets that node configs reference as
// "secret:<name>", so exported workflows never carry the values.
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (GNOME Keyring, KWallet)
type SecretStore struct {
	service string
}

// NewSecretStore creates a keyring-backed secret store.
func NewSecretStore() *SecretStore {
	return &SecretStore{service: ServiceName}
}

// Set stores a secret and records its name in the index
func (s *SecretStore) Set(name, value string) error {
	if name == indexKey {
		return fmt.Errorf("secret name %q is reserved", name)
	}
	if err := validation.ValidateIdentifier("secret name", name); err != nil {
		return err
	}

	if err := keyring.Set(s.service, name, value); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	return s.updateIndex(func(names []string) []string {
		for _, n := range names {
			if n == name {
				return names
			}
		}
		return append(names, name)
	})
}

// Get retrieves a secret value
func (s *SecretStore) Get(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name cannot be empty")
	}

	value, err := keyring.Get(s.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to retrieve secret: %w", err)
	}
	return value, nil
}

// Delete removes a secret and drops it from the index
func (s *SecretStore) Delete(name string) error {
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}

	err := keyring.Delete(s.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	return s.updateIndex(func(names []string) []string {
		out := names[:0]
		for _, n := range names {
			if n != name {
				out = append(out, n)
			}
		}
		return out
	})
}

// List returns the stored secret names, sorted
func (s *SecretStore) List() ([]string, error) {
	indexJSON, err := keyring.Get(s.service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve secret index: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(indexJSON), &names); err != nil {
		return nil, fmt.Errorf("failed to parse secret index: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *SecretStore) updateIndex(fn func([]string) []string) error {
	names, err := s.List()
	if err != nil {
		return err
	}

	data, err := json.Marshal(fn(names))
	if err != nil {
		return fmt.Errorf("failed to marshal secret index: %w", err)
	}
	if err := keyring.Set(s.service, indexKey, string(data)); err != nil {
		return fmt.Errorf("failed to save secret index: %w", err)
	}
	return nil
}

// Resolve returns the secret a "secret:<name>" reference points to.
// Any other value is returned unchanged.
func (s *SecretStore) Resolve(value string) (string, error) {
	name, ok := strings.CutPrefix(value, workflow.SecretRefPrefix)
	if !ok {
		return value, nil
	}
	return s.Get(name)
}

// ResolveConfig returns a copy of config with every secret reference
// replaced by its value.
func (s *SecretStore) ResolveConfig(config map[string]any) (map[string]any, error) {
	out := workflow.CloneConfig(config)
	for k, v := range out {
		str, ok := v.(string)
		if !ok {
			continue
		}
		resolved, err := s.Resolve(str)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}
