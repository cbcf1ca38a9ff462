// Package gpg loads the OpenPGP key used to sign release commits and tags.
package gpg

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// ErrNoSigningKey is returned when a keyring holds no usable private key.
var ErrNoSigningKey = errors.New("no private signing key found")

// Keyring holds the signing entity loaded from disk.
// ProtonMail's go-crypto is a maintained fork of golang.org/x/crypto/openpgp
// and is the type go-git expects for commit and tag signing.
type Keyring struct {
	entities openpgp.EntityList
	signer   *openpgp.Entity
}

// LoadSigningKey reads an armored or binary private key from keyPath and
// decrypts it with passphrase when it is protected.
func LoadSigningKey(keyPath, passphrase string) (*Keyring, error) {
	//nolint:gosec // G304: keyPath is user-provided signing key location
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	return ParseSigningKey(data, passphrase)
}

// ParseSigningKey is LoadSigningKey for in-memory key material.
func ParseSigningKey(data []byte, passphrase string) (*Keyring, error) {
	list, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		// Try reading as binary
		list, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	var signer *openpgp.Entity
	for _, e := range list {
		if e.PrivateKey != nil {
			signer = e
			break
		}
	}
	if signer == nil {
		return nil, ErrNoSigningKey
	}

	if signer.PrivateKey.Encrypted {
		if passphrase == "" {
			return nil, fmt.Errorf("signing key is encrypted and no passphrase was given")
		}
		if err := signer.DecryptPrivateKeys([]byte(passphrase)); err != nil {
			return nil, fmt.Errorf("failed to decrypt signing key: %w", err)
		}
	}

	return &Keyring{entities: list, signer: signer}, nil
}

// Signer returns the entity used for signing.
func (k *Keyring) Signer() *openpgp.Entity {
	return k.signer
}

// Fingerprint returns the upper-case hex fingerprint of the signing key.
func (k *Keyring) Fingerprint() string {
	return fmt.Sprintf("%X", k.signer.PrimaryKey.Fingerprint)
}

// SignDetached returns an armored detached signature over data.
func (k *Keyring) SignDetached(data []byte) ([]byte, error) {
	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, k.signer, bytes.NewReader(data), nil); err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig.Bytes(), nil
}

// VerifyDetached checks an armored detached signature made by this keyring.
func (k *Keyring) VerifyDetached(data, signature []byte) error {
	_, err := openpgp.CheckArmoredDetachedSignature(k.entities, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}
