package session

import (
	"errors"
	"fmt"
	"strings"
)

// MinKeyBytes is the minimum accepted signing-key length. HS256 keys
// shorter than the hash output weaken the MAC.
const MinKeyBytes = 32

// Key is a named HMAC signing key. The ID is stamped into the cookie
// header so verification can pick the right key during rotation.
type Key struct {
	ID     string
	Secret []byte
}

// Keyring holds the ordered signing keys for the session cookie. The first
// key signs new cookies; every key participates in verification, so cookies
// signed before a rotation stay valid until their natural expiry.
type Keyring struct {
	keys []Key
	byID map[string][]byte
}

// NewKeyring validates and assembles a keyring. At least one key is
// required; IDs must be unique and secrets at least MinKeyBytes long.
func NewKeyring(keys ...Key) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, errors.New("keyring: at least one signing key is required")
	}

	byID := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if k.ID == "" {
			return nil, errors.New("keyring: key ID cannot be empty")
		}
		if len(k.Secret) < MinKeyBytes {
			return nil, fmt.Errorf("keyring: key %q is shorter than %d bytes", k.ID, MinKeyBytes)
		}
		if _, dup := byID[k.ID]; dup {
			return nil, fmt.Errorf("keyring: duplicate key ID %q", k.ID)
		}
		byID[k.ID] = k.Secret
	}

	return &Keyring{keys: append([]Key(nil), keys...), byID: byID}, nil
}

// Current returns the signing key for newly minted cookies.
func (r *Keyring) Current() Key { return r.keys[0] }

// lookup returns the secret for a key ID, if present.
func (r *Keyring) lookup(id string) ([]byte, bool) {
	secret, ok := r.byID[id]
	return secret, ok
}

// ParseKeys parses "id:secret" entries into keys, preserving order. The
// first entry becomes the signing key. Secrets are taken verbatim, so key
// material should come from a secret manager or environment, never source.
func ParseKeys(entries []string) ([]Key, error) {
	keys := make([]Key, 0, len(entries))
	for _, entry := range entries {
		id, secret, found := strings.Cut(entry, ":")
		if !found || id == "" || secret == "" {
			return nil, fmt.Errorf("signing key entry must be id:secret, got %q", redactEntry(entry))
		}
		keys = append(keys, Key{ID: id, Secret: []byte(secret)})
	}
	if len(keys) == 0 {
		return nil, errors.New("no signing keys configured")
	}
	return keys, nil
}

// redactEntry keeps key material out of error messages and logs.
func redactEntry(entry string) string {
	if id, _, found := strings.Cut(entry, ":"); found && id != "" {
		return id + ":***"
	}
	return "***"
}
