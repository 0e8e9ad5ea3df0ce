package oracle

import (
	"errors"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/confidential-ico/internal/hash"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
	"github.com/taurusgroup/confidential-ico/pkg/paillier"
)

var ErrEmptyProof = errors.New("oracle: empty proof")

// Proof shows that a clear value is the decryption of a handle.
//
// Anyone holding the Paillier public key can re-encrypt the clear value with Nonce
// and compare the result with the stored ciphertext. The signature shows that the
// oracle released this value.
type Proof struct {
	// Nonce is ρ such that ct = (1+N)ᵐρᴺ (mod N²)
	Nonce []byte `cbor:"1,keyasint"`
	// Signature is a DER encoded ECDSA signature over Digest(handle, clear)
	Signature []byte `cbor:"2,keyasint"`
}

// EncodeProof returns the cbor encoding of p.
func EncodeProof(p *Proof) ([]byte, error) {
	return cbor.Marshal(p)
}

// DecodeProof decodes a proof produced by EncodeProof.
func DecodeProof(data []byte) (*Proof, error) {
	if len(data) == 0 {
		return nil, ErrEmptyProof
	}
	var p Proof
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Digest is the message signed by the oracle when it releases clear for h.
func Digest(h confidential.Handle, clear []byte) []byte {
	return hash.New("oracle attestation", h, clear).Sum()
}

// Store gives read access to stored ciphertexts.
type Store interface {
	Ciphertext(h confidential.Handle) (*paillier.Ciphertext, bool)
}

// Verifier checks oracle proofs without any secret material.
// It implements disclosure.Verifier.
type Verifier struct {
	store       Store
	pk          *paillier.PublicKey
	attestation *secp256k1.PublicKey
}

// NewVerifier returns a Verifier for values of store encrypted under pk, and released by the owner of attestation.
func NewVerifier(store Store, pk *paillier.PublicKey, attestation *secp256k1.PublicKey) *Verifier {
	return &Verifier{
		store:       store,
		pk:          pk,
		attestation: attestation,
	}
}

// Verify returns true if clear is the ABI encoded decryption of h, released by the oracle.
func (v *Verifier) Verify(h confidential.Handle, clear, proof []byte) bool {
	ct, ok := v.store.Ciphertext(h)
	if !ok {
		return false
	}
	m, err := disclosure.DecodeUint64(clear)
	if err != nil {
		return false
	}
	p, err := DecodeProof(proof)
	if err != nil {
		return false
	}

	sig, err := ecdsa.ParseDERSignature(p.Signature)
	if err != nil {
		return false
	}
	if !sig.Verify(Digest(h, clear), v.attestation) {
		return false
	}

	nonce := new(saferith.Nat).SetBytes(p.Nonce)
	if !v.pk.ValidateNonce(nonce) {
		return false
	}
	return v.pk.EncWithNonce(new(saferith.Int).SetUint64(m), nonce).Equal(ct)
}
