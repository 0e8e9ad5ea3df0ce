package paillier

import (
	"io"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/confidential-ico/internal/params"
)

// Ciphertext represents an integer of the form
//
//	ct = (1+N)ᵐρᴺ (mod N²), with m ∈ [-(N-1)/2, …, (N-1)/2] and ρ ∈ ℤₙˣ.
//
// Add and Sub return a new Ciphertext and leave the receiver untouched.
type Ciphertext struct {
	c *saferith.Nat
}

// Add returns the homomorphic sum ct ⊕ ct₂.
// ct⋅ct₂ (mod N²).
func (ct *Ciphertext) Add(pk *PublicKey, ct2 *Ciphertext) *Ciphertext {
	if ct2 == nil {
		return ct.Clone()
	}
	return &Ciphertext{c: new(saferith.Nat).ModMul(ct.c, ct2.c, pk.nSquared)}
}

// Sub returns the homomorphic difference ct ⊖ ct₂.
// ct⋅ct₂⁻¹ (mod N²).
func (ct *Ciphertext) Sub(pk *PublicKey, ct2 *Ciphertext) *Ciphertext {
	if ct2 == nil {
		return ct.Clone()
	}
	inv := new(saferith.Nat).ModInverse(ct2.c, pk.nSquared)
	return &Ciphertext{c: new(saferith.Nat).ModMul(ct.c, inv, pk.nSquared)}
}

// Equal check whether ct ≡ ctₐ (mod N²).
func (ct *Ciphertext) Equal(ctA *Ciphertext) bool {
	if ct == nil || ctA == nil {
		return ct == ctA
	}
	return ct.c.Eq(ctA.c) == 1
}

// Clone returns a deep copy of ct.
func (ct Ciphertext) Clone() *Ciphertext {
	c := new(saferith.Nat)
	c.SetNat(ct.c)
	return &Ciphertext{c: c}
}

// Randomize multiplies the ciphertext's nonce by a newly generated one.
// ct ← ct ⋅ nonceᴺ (mod N²).
// If nonce is nil, a random one is generated.
// The receiver is updated, and the nonce update is returned.
func (ct *Ciphertext) Randomize(pk *PublicKey, nonce *saferith.Nat) *saferith.Nat {
	if nonce == nil {
		_, nonce = pk.EncUint64(0)
	}
	// ct = ct * rho0ᴺ
	tmp := new(saferith.Nat).Exp(nonce, pk.nNat, pk.nSquared)
	ct.c.ModMul(ct.c, tmp, pk.nSquared)
	return nonce
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (ct *Ciphertext) WriteTo(w io.Writer) (int64, error) {
	if ct == nil || ct.c == nil {
		return 0, io.ErrUnexpectedEOF
	}
	buf := make([]byte, params.BytesCiphertext)
	ct.c.FillBytes(buf)
	n, err := w.Write(buf)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (*Ciphertext) Domain() string {
	return "Paillier Ciphertext"
}
