package oracle

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/confidential-ico/pkg/paillier"
	"github.com/taurusgroup/confidential-ico/pkg/pool"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const keystoreVersion = 1

var (
	ErrWrongPassphrase = errors.New("oracle: wrong passphrase or corrupted keystore")
	ErrKeystoreVersion = errors.New("oracle: unsupported keystore version")
)

// Keys is the secret material of an Oracle.
type Keys struct {
	Paillier    *paillier.SecretKey
	Attestation *secp256k1.PrivateKey
}

// GenerateKeys samples a fresh Paillier key, using pl to search for primes, and a fresh attestation key.
func GenerateKeys(pl *pool.Pool) (*Keys, error) {
	attestation, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("oracle: attestation key: %w", err)
	}
	return &Keys{
		Paillier:    paillier.NewSecretKey(pl),
		Attestation: attestation,
	}, nil
}

type keysEncoding struct {
	Paillier    []byte `cbor:"1,keyasint"`
	Attestation []byte `cbor:"2,keyasint"`
}

func (k *Keys) marshal() ([]byte, error) {
	sk, err := k.Paillier.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(keysEncoding{
		Paillier:    sk,
		Attestation: k.Attestation.Serialize(),
	})
}

func (k *Keys) unmarshal(data []byte) error {
	var enc keysEncoding
	if err := cbor.Unmarshal(data, &enc); err != nil {
		return err
	}
	sk := new(paillier.SecretKey)
	if err := sk.UnmarshalBinary(enc.Paillier); err != nil {
		return err
	}
	if len(enc.Attestation) != secp256k1.PrivKeyBytesLen {
		return fmt.Errorf("oracle: attestation key has %d bytes", len(enc.Attestation))
	}
	k.Paillier = sk
	k.Attestation = secp256k1.PrivKeyFromBytes(enc.Attestation)
	return nil
}

// KeystoreConfig holds the scrypt cost parameters used when sealing keys.
type KeystoreConfig struct {
	ScryptN int
	ScryptR int
	ScryptP int
}

// DefaultKeystoreConfig returns the standard scrypt parameters.
func DefaultKeystoreConfig() KeystoreConfig {
	return KeystoreConfig{
		ScryptN: 1 << 18,
		ScryptR: 8,
		ScryptP: 1,
	}
}

// LightKeystoreConfig is cheap enough for tests and throwaway keys.
func LightKeystoreConfig() KeystoreConfig {
	return KeystoreConfig{
		ScryptN: 1 << 12,
		ScryptR: 8,
		ScryptP: 1,
	}
}

type sealedKeys struct {
	Version    int    `cbor:"1,keyasint"`
	ScryptN    int    `cbor:"2,keyasint"`
	ScryptR    int    `cbor:"3,keyasint"`
	ScryptP    int    `cbor:"4,keyasint"`
	Salt       []byte `cbor:"5,keyasint"`
	Nonce      []byte `cbor:"6,keyasint"`
	Ciphertext []byte `cbor:"7,keyasint"`
}

// Seal encrypts keys under passphrase.
func Seal(keys *Keys, passphrase string, cfg KeystoreConfig) ([]byte, error) {
	plain, err := keys.marshal()
	if err != nil {
		return nil, fmt.Errorf("oracle: seal: %w", err)
	}

	sealed := sealedKeys{
		Version: keystoreVersion,
		ScryptN: cfg.ScryptN,
		ScryptR: cfg.ScryptR,
		ScryptP: cfg.ScryptP,
		Salt:    make([]byte, 32),
		Nonce:   make([]byte, chacha20poly1305.NonceSizeX),
	}
	if _, err = io.ReadFull(rand.Reader, sealed.Salt); err != nil {
		return nil, fmt.Errorf("oracle: seal: %w", err)
	}
	if _, err = io.ReadFull(rand.Reader, sealed.Nonce); err != nil {
		return nil, fmt.Errorf("oracle: seal: %w", err)
	}

	aead, err := sealed.aead(passphrase)
	if err != nil {
		return nil, fmt.Errorf("oracle: seal: %w", err)
	}
	sealed.Ciphertext = aead.Seal(nil, sealed.Nonce, plain, []byte{keystoreVersion})
	return cbor.Marshal(sealed)
}

// Open decrypts keys sealed by Seal.
func Open(data []byte, passphrase string) (*Keys, error) {
	var sealed sealedKeys
	if err := cbor.Unmarshal(data, &sealed); err != nil {
		return nil, fmt.Errorf("oracle: open: %w", err)
	}
	if sealed.Version != keystoreVersion {
		return nil, ErrKeystoreVersion
	}
	aead, err := sealed.aead(passphrase)
	if err != nil {
		return nil, fmt.Errorf("oracle: open: %w", err)
	}
	plain, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, []byte{keystoreVersion})
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	keys := new(Keys)
	if err = keys.unmarshal(plain); err != nil {
		return nil, fmt.Errorf("oracle: open: %w", err)
	}
	return keys, nil
}

func (s *sealedKeys) aead(passphrase string) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), s.Salt, s.ScryptN, s.ScryptR, s.ScryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	return chacha20poly1305.NewX(key)
}

// Save seals keys and writes them to path, readable by the owner only.
func Save(path string, keys *Keys, passphrase string, cfg KeystoreConfig) error {
	data, err := Seal(keys, passphrase, cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Load reads and opens the keystore at path.
func Load(path, passphrase string) (*Keys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(data, passphrase)
}
