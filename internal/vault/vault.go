// Package vault is the encrypted-at-rest store for the recovery phrase.
// It is the single source of truth for "does a wallet exist"; deleting
// the entry makes every derived account unrecoverable.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/scrypt"

	"kiwiwallet/internal/model"
)

const (
	// scrypt parameters for the local vault.
	// Security is prioritized over performance
	//
	// N=2^18 (~256MB RAM, 0.5-2s) - optimal balance:
	//   - Maximum security while remaining compatible with modest devices
	//   - Brute-force attacks remain extremely expensive
	standardScryptN = 1 << 18
	lightScryptN    = 1 << 12 // tests only

	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 32
	nonceLen     = 12

	// entryName is the single key the vault holds.
	entryName = "mnemonic"
)

// envelope is the on-disk file structure. The address is stored in the
// clear so read-only flows (balances, history, receive) do not need the
// password; the phrase itself is only inside the ciphertext.
type envelope struct {
	Entry      string `json:"entry"`
	Address    string `json:"address"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

// payload is the encrypted content.
type payload struct {
	Mnemonic  string `json:"mnemonic"`
	CreatedAt string `json:"createdAt"`
}

// Vault stores one recovery phrase, scrypt+AES-GCM encrypted, in a
// single file. Saves are serialized and written atomically, so
// concurrent callers get last-writer-wins, never a torn file.
type Vault struct {
	path    string
	scryptN int
	mu      sync.Mutex
}

// New opens a vault at path with standard scrypt parameters.
func New(path string) *Vault {
	return &Vault{path: path, scryptN: standardScryptN}
}

// newLight uses weak scrypt parameters; tests only.
func newLight(path string) *Vault {
	return &Vault{path: path, scryptN: lightScryptN}
}

// Exists reports whether a wallet is stored.
func (v *Vault) Exists() bool {
	info, err := os.Stat(v.path)
	return err == nil && info.Size() > 0
}

// Address reads the cleartext address without decrypting the phrase.
// Returns model.ErrNoWallet when the vault is empty.
func (v *Vault) Address() (string, error) {
	env, err := v.read()
	if err != nil {
		return "", err
	}
	return env.Address, nil
}

// Save encrypts the phrase and writes it to disk, replacing any
// previous entry. password must be []byte for security (caller should
// zero it after use).
func (v *Vault) Save(phrase, address string, password []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return &model.StorageError{Op: "save", Err: err}
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return &model.StorageError{Op: "save", Err: err}
	}

	aesGCM, err := v.newGCM(password, salt)
	if err != nil {
		return &model.StorageError{Op: "save", Err: err}
	}

	plaintext, err := json.Marshal(payload{
		Mnemonic:  phrase,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return &model.StorageError{Op: "save", Err: err}
	}
	defer clear(plaintext) // wipe plaintext bytes from memory

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	fileData, err := json.MarshalIndent(envelope{
		Entry:      entryName,
		Address:    address,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}, "", "  ")
	if err != nil {
		return &model.StorageError{Op: "save", Err: err}
	}

	// Write to a temp file in the same directory and rename over the
	// target, so a crash mid-write never leaves a torn vault.
	dir := filepath.Dir(v.path)
	tmp, err := os.CreateTemp(dir, ".vault-*")
	if err != nil {
		return &model.StorageError{Op: "save", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(fileData); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &model.StorageError{Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &model.StorageError{Op: "save", Err: err}
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return &model.StorageError{Op: "save", Err: err}
	}
	if err := os.Rename(tmpName, v.path); err != nil {
		os.Remove(tmpName)
		return &model.StorageError{Op: "save", Err: err}
	}
	return nil
}

// Load decrypts and returns the stored phrase. The second return is
// false when no wallet is stored. password must be []byte for security
// (caller should zero it after use); the returned phrase should be
// discarded as soon as derivation is done.
func (v *Vault) Load(password []byte) (string, bool, error) {
	env, err := v.read()
	if err != nil {
		if err == model.ErrNoWallet {
			return "", false, nil
		}
		return "", false, err
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return "", false, &model.StorageError{Op: "load", Err: err}
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return "", false, &model.StorageError{Op: "load", Err: err}
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.CipherText)
	if err != nil {
		return "", false, &model.StorageError{Op: "load", Err: err}
	}

	aesGCM, err := v.newGCM(password, salt)
	if err != nil {
		return "", false, &model.StorageError{Op: "load", Err: err}
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", false, &model.StorageError{Op: "load", Err: err}
	}
	defer clear(plaintext) // wipe decrypted bytes from memory

	var p payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return "", false, &model.StorageError{Op: "load", Err: err}
	}
	return p.Mnemonic, true, nil
}

// Clear removes the stored phrase entirely. Load after Clear returns
// not-found. Clearing an already empty vault is not an error.
func (v *Vault) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.Remove(v.path); err != nil && !os.IsNotExist(err) {
		return &model.StorageError{Op: "clear", Err: err}
	}
	return nil
}

func (v *Vault) read() (*envelope, error) {
	fileData, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrNoWallet
		}
		return nil, &model.StorageError{Op: "read", Err: err}
	}
	if len(fileData) == 0 {
		return nil, model.ErrNoWallet
	}

	var env envelope
	if err := json.Unmarshal(fileData, &env); err != nil {
		return nil, &model.StorageError{Op: "read", Err: err}
	}
	return &env, nil
}

func (v *Vault) newGCM(password, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, v.scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
