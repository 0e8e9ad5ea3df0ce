package paillier

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/confidential-ico/internal/params"
	"github.com/taurusgroup/confidential-ico/pkg/math/sample"
)

var (
	ErrPaillierLength = errors.New("wrong number bit length of Paillier modulus N")
	ErrPaillierEven   = errors.New("modulus N is even")
	ErrPaillierNil    = errors.New("modulus N is nil")
)

// PublicKey is a Paillier public key. It is represented by a modulus N.
type PublicKey struct {
	// n = p⋅q
	n *saferith.Modulus
	// nSquared = n²
	nSquared *saferith.Modulus

	// These values are cached out of convenience, and performance
	nNat *saferith.Nat
	// nPlusOne = n + 1
	nPlusOne *saferith.Nat
	// nHalf = (n - 1)/2 bounds the magnitude of encryptable messages
	nHalf *saferith.Nat
}

// NewPublicKey returns an initialized PublicKey for the given modulus N.
// It does not validate N, see ValidateN.
func NewPublicKey(n *saferith.Modulus) *PublicKey {
	oneNat := new(saferith.Nat).SetUint64(1)
	nNat := n.Nat()
	nSquared := saferith.ModulusFromNat(new(saferith.Nat).Mul(nNat, nNat, -1))
	nPlusOne := new(saferith.Nat).Add(nNat, oneNat, -1)
	// Tightening is fine, since n is public
	nPlusOne.Resize(nPlusOne.TrueLen())
	nHalf := new(saferith.Nat).Rsh(nNat, 1, -1)

	return &PublicKey{
		n:        n,
		nSquared: nSquared,
		nNat:     nNat,
		nPlusOne: nPlusOne,
		nHalf:    nHalf,
	}
}

// ValidateN performs basic checks to make sure the modulus is valid:
// - log₂(n) = params.BitsPaillier.
// - n is odd.
func ValidateN(n *saferith.Modulus) error {
	if n == nil {
		return ErrPaillierNil
	}
	if bitsLength := n.BitLen(); bitsLength != params.BitsPaillier {
		return fmt.Errorf("have: %d, need %d: %w", bitsLength, params.BitsPaillier, ErrPaillierLength)
	}
	if n.Nat().Byte(0)&1 != 1 {
		return ErrPaillierEven
	}
	return nil
}

// Enc returns the encryption of m under the public key pk.
// The nonce used to encrypt is returned.
//
// The message m must be in the range [-(N-1)/2, …, (N-1)/2] and panics otherwise.
//
// ct = (1+N)ᵐρᴺ (mod N²).
func (pk *PublicKey) Enc(m *saferith.Int) (*Ciphertext, *saferith.Nat) {
	nonce := sample.UnitModN(rand.Reader, pk.n)
	return pk.EncWithNonce(m, nonce), nonce
}

// EncWithNonce returns the encryption of m under the public key pk.
// The nonce is not returned.
//
// The message m must be in the range [-(N-1)/2, …, (N-1)/2] and panics otherwise.
//
// ct = (1+N)ᵐρᴺ (mod N²).
func (pk *PublicKey) EncWithNonce(m *saferith.Int, nonce *saferith.Nat) *Ciphertext {
	if gt, _, _ := m.Abs().Cmp(pk.nHalf); gt == 1 {
		panic("paillier.Encrypt: tried to encrypt message outside of range [-(N-1)/2, …, (N-1)/2]")
	}

	// (N+1)ᵐ mod N²
	c := new(saferith.Nat).ExpI(pk.nPlusOne, m, pk.nSquared)
	// ρᴺ mod N²
	rhoN := new(saferith.Nat).Exp(nonce, pk.nNat, pk.nSquared)
	// (N+1)ᵐ ρᴺ
	c.ModMul(c, rhoN, pk.nSquared)

	return &Ciphertext{c: c}
}

// EncUint64 is Enc for a non negative message.
func (pk *PublicKey) EncUint64(m uint64) (*Ciphertext, *saferith.Nat) {
	return pk.Enc(new(saferith.Int).SetUint64(m))
}

// Equal returns true if pk ≡ other.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	_, eq, _ := pk.n.Cmp(other.n)
	return eq == 1
}

// ValidateCiphertexts checks if all ciphertexts are in the correct range and coprime to N².
// ct ∈ [1, …, N²-1] AND GCD(ct,N²) = 1.
func (pk *PublicKey) ValidateCiphertexts(cts ...*Ciphertext) bool {
	for _, ct := range cts {
		if ct == nil || ct.c == nil {
			return false
		}
		if _, _, lt := ct.c.CmpMod(pk.nSquared); lt != 1 {
			return false
		}
		if ct.c.IsUnit(pk.nSquared) != 1 {
			return false
		}
	}
	return true
}

// ValidateNonce checks that ρ ∈ ℤₙˣ.
func (pk *PublicKey) ValidateNonce(nonce *saferith.Nat) bool {
	if nonce == nil {
		return false
	}
	if _, _, lt := nonce.CmpMod(pk.n); lt != 1 {
		return false
	}
	return nonce.IsUnit(pk.n) == 1
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (pk *PublicKey) WriteTo(w io.Writer) (int64, error) {
	if pk == nil {
		return 0, io.ErrUnexpectedEOF
	}
	buf := pk.n.Bytes()
	n, err := w.Write(buf)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (*PublicKey) Domain() string {
	return "Paillier PublicKey"
}
