package wallet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"filippo.io/age"

	"github.com/mrz1836/timelock/internal/fileutil"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

const keystoreFilePermissions = 0o600

// ErrKeystoreExists is returned when Save would overwrite a keystore.
var ErrKeystoreExists = &tlerr.TimelockError{
	Code:       "KEYSTORE_EXISTS",
	Message:    "keystore already exists",
	Suggestion: "remove the existing keystore file first",
	ExitCode:   tlerr.ExitInput,
}

// Keystore stores one mnemonic encrypted with an age scrypt passphrase.
type Keystore struct {
	path       string
	workFactor int // scrypt log2(N); zero keeps the age default
}

// NewKeystore returns a keystore backed by the file at path.
func NewKeystore(path string) *Keystore {
	return &Keystore{path: path}
}

// SetWorkFactor overrides the scrypt work factor used by Save.
func (k *Keystore) SetWorkFactor(logN int) {
	k.workFactor = logN
}

// Path returns the keystore file path.
func (k *Keystore) Path() string {
	return k.path
}

// Exists reports whether the keystore file is present.
func (k *Keystore) Exists() (bool, error) {
	_, err := os.Stat(k.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Save encrypts mnemonic and writes it. An existing keystore is never overwritten.
func (k *Keystore) Save(mnemonic, passphrase string) error {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return tlerr.WithCause(tlerr.ErrInvalidInput, err)
	}

	exists, err := k.Exists()
	if err != nil {
		return fmt.Errorf("checking keystore: %w", err)
	}
	if exists {
		return tlerr.WithDetails(ErrKeystoreExists, map[string]string{"path": k.path})
	}

	sealed, err := encrypt([]byte(NormalizeMnemonic(mnemonic)), passphrase, k.workFactor)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(k.path, sealed, keystoreFilePermissions)
}

// Load decrypts the stored mnemonic.
func (k *Keystore) Load(passphrase string) (string, error) {
	// #nosec G304 -- keystore path comes from configuration
	data, err := os.ReadFile(k.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", tlerr.WithDetails(tlerr.ErrNotFound, map[string]string{"keystore": k.path})
	}
	if err != nil {
		return "", fmt.Errorf("reading keystore: %w", err)
	}

	plain, err := decrypt(data, passphrase)
	if err != nil {
		return "", tlerr.WithCause(tlerr.ErrDecryptionFailed, err)
	}
	return string(plain), nil
}

func encrypt(plaintext []byte, passphrase string, workFactor int) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if workFactor > 0 {
		recipient.SetWorkFactor(workFactor)
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("initializing decryption: %w", err)
	}
	return io.ReadAll(r)
}
