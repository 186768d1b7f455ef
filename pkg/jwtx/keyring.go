package jwtx

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aussiebroadwan/ssohandoff/pkg/cryptox"
)

// MinSecretLength is the shortest HMAC secret the keyring accepts.
const MinSecretLength = 32

// maxRetired bounds how many rotated-out secrets stay valid for verification.
const maxRetired = 4

var (
	ErrNoKey      = errors.New("jwtx: key not found")
	ErrWeakSecret = fmt.Errorf("jwtx: signing secret must be at least %d bytes", MinSecretLength)
)

type hmacKey struct {
	kid    string
	secret []byte
}

// KeyRing holds the active HMAC secret plus a few retired ones. Signer and
// Verifier share one ring so a Rotate is visible to both immediately.
type KeyRing struct {
	mu      sync.RWMutex
	active  *hmacKey
	retired []hmacKey
}

// NewKeyRing returns a ring with secret as the active key.
func NewKeyRing(secret []byte) (*KeyRing, error) {
	k := &KeyRing{}
	if err := k.Rotate(secret); err != nil {
		return nil, err
	}
	return k, nil
}

// Rotate makes secret the active signing key. The previous active key is
// kept for verification of tokens that are still in flight.
func (k *KeyRing) Rotate(secret []byte) error {
	if len(secret) < MinSecretLength {
		return ErrWeakSecret
	}

	next := &hmacKey{
		kid:    cryptox.KeyID(secret),
		secret: append([]byte(nil), secret...),
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.active != nil && k.active.kid != next.kid {
		k.retired = append([]hmacKey{*k.active}, k.retired...)
		if len(k.retired) > maxRetired {
			k.retired = k.retired[:maxRetired]
		}
	}
	k.active = next
	return nil
}

// Active returns the kid and secret used for signing.
func (k *KeyRing) Active() (string, []byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.active == nil {
		return "", nil, ErrNoKey
	}
	return k.active.kid, k.active.secret, nil
}

// Lookup returns the secret for kid, active or retired.
func (k *KeyRing) Lookup(kid string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.active != nil && k.active.kid == kid {
		return k.active.secret, nil
	}
	for _, r := range k.retired {
		if r.kid == kid {
			return r.secret, nil
		}
	}
	return nil, ErrNoKey
}

// IsReady reports whether a signing key is loaded.
func (k *KeyRing) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.active != nil
}
