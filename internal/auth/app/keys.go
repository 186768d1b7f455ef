package app

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
)

// ErrNoSigningKey means neither AUTH_SIGNING_KEY nor AUTH_SIGNING_KEY_FILE was
// set outside dev.
var ErrNoSigningKey = errors.New("no signing key configured (set AUTH_SIGNING_KEY or AUTH_SIGNING_KEY_FILE)")

// ReadSigningKey returns the shared HMAC secret. A file wins over the inline
// value; surrounding whitespace in the file is ignored. Returns ErrNoSigningKey
// when both are empty.
func ReadSigningKey(value, file string) ([]byte, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read signing key file: %w", err)
		}
		value = strings.TrimSpace(string(b))
	}
	if value == "" {
		return nil, ErrNoSigningKey
	}
	if len(value) < jwtx.MinSecretLength {
		return nil, jwtx.ErrWeakSecret
	}
	return []byte(value), nil
}

// InitKeyRing builds the keyring shared by the signer and verifier.
//
// In dev a missing key is replaced by a random one. Every token issued then
// dies with the process and no resource server can verify it, so this is
// only good for local poking.
func InitKeyRing(cfg Config, logger *slog.Logger) (*jwtx.KeyRing, error) {
	secret, err := ReadSigningKey(cfg.SigningKey, cfg.SigningKeyFile)
	if errors.Is(err, ErrNoSigningKey) && cfg.Env == "dev" {
		secret = make([]byte, jwtx.MinSecretLength)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		logger.Warn("no signing key configured, generated an ephemeral one; tokens will not survive a restart")
	} else if err != nil {
		return nil, err
	}

	ring, err := jwtx.NewKeyRing(secret)
	if err != nil {
		return nil, err
	}

	kid, _, _ := ring.Active()
	logger.Info("signing key loaded", "alg", "HS256", "kid", kid, "issuer", cfg.Issuer)
	return ring, nil
}
