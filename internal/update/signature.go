package update

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// SignatureVerifier checks detached OpenPGP signatures against a keyring.
type SignatureVerifier struct {
	keyring openpgp.EntityList
}

// NewSignatureVerifier wraps an already loaded keyring.
func NewSignatureVerifier(keyring openpgp.EntityList) *SignatureVerifier {
	return &SignatureVerifier{keyring: keyring}
}

// LoadKeyring reads an armored or binary public keyring from path.
func LoadKeyring(path string) (*SignatureVerifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		// Try binary format
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse keyring %s: %w", path, err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring %s holds no keys", path)
	}
	return NewSignatureVerifier(keyring), nil
}

// Verify checks an armored (or, failing that, binary) detached signature of the file at path.
func (v *SignatureVerifier) Verify(path string, signature []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open signed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := openpgp.CheckArmoredDetachedSignature(v.keyring, f, bytes.NewReader(signature), nil); err == nil {
		return nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind signed file: %w", err)
	}
	if _, err := openpgp.CheckDetachedSignature(v.keyring, f, bytes.NewReader(signature), nil); err != nil {
		return fmt.Errorf("signature does not match keyring: %w", err)
	}
	return nil
}
