package paillier

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/confidential-ico/internal/params"
	"github.com/taurusgroup/confidential-ico/pkg/math/sample"
	"github.com/taurusgroup/confidential-ico/pkg/pool"
)

var (
	ErrPrimeBadLength    = errors.New("prime factor is not the right length")
	ErrNotBlum           = errors.New("prime factor is not equivalent to 3 (mod 4)")
	ErrNotSafePrime      = errors.New("supposed prime factor is not a safe prime")
	ErrPrimeNil          = errors.New("prime is nil")
	ErrInvalidCiphertext = errors.New("paillier: failed to decrypt invalid ciphertext")
)

// SecretKey is the secret key corresponding to a Public Paillier Key.
//
// A public key is a modulus N, and the secret key contains the information
// needed to factor N into two primes, P and Q. This allows us to decrypt
// values encrypted using this modulus.
type SecretKey struct {
	*PublicKey
	// p, q such that N = p⋅q
	p, q *saferith.Nat
	// phi = ϕ = (p-1)(q-1)
	phi *saferith.Nat
	// phiInv = ϕ⁻¹ mod N
	phiInv *saferith.Nat
	// nInv = N⁻¹ mod ϕ, used to recover encryption nonces
	nInv *saferith.Nat
}

// P returns the first of the two factors composing this key.
func (sk *SecretKey) P() *saferith.Nat {
	return sk.p
}

// Q returns the second of the two factors composing this key.
func (sk *SecretKey) Q() *saferith.Nat {
	return sk.q
}

// NewSecretKey generates primes p and q suitable for the scheme, and returns the initialized SecretKey.
func NewSecretKey(pl *pool.Pool) *SecretKey {
	return NewSecretKeyFromPrimes(sample.Paillier(rand.Reader, pl))
}

// NewSecretKeyFromPrimes generates a new SecretKey. Assumes that P and Q are prime.
func NewSecretKeyFromPrimes(P, Q *saferith.Nat) *SecretKey {
	oneNat := new(saferith.Nat).SetUint64(1)

	nNat := new(saferith.Nat).Mul(P, Q, -1)
	n := saferith.ModulusFromNat(nNat)

	pMinus1 := new(saferith.Nat).Sub(P, oneNat, -1)
	qMinus1 := new(saferith.Nat).Sub(Q, oneNat, -1)
	phi := new(saferith.Nat).Mul(pMinus1, qMinus1, -1)
	// ϕ⁻¹ mod N
	phiInv := new(saferith.Nat).ModInverse(phi, n)

	// ϕ is even, so the inverse goes through math/big.
	nInvBig := new(big.Int).ModInverse(nNat.Big(), phi.Big())
	nInv := new(saferith.Nat).SetBig(nInvBig, nInvBig.BitLen())

	return &SecretKey{
		p:         P,
		q:         Q,
		phi:       phi,
		phiInv:    phiInv,
		nInv:      nInv,
		PublicKey: NewPublicKey(n),
	}
}

// Dec decrypts c and returns the plaintext m ∈ ± (N-2)/2.
// It returns an error if gcd(c, N²) != 1 or if c is not in [1, N²-1].
func (sk *SecretKey) Dec(ct *Ciphertext) (*saferith.Int, error) {
	oneNat := new(saferith.Nat).SetUint64(1)

	if !sk.PublicKey.ValidateCiphertexts(ct) {
		return nil, ErrInvalidCiphertext
	}

	// r = c^Phi 						(mod N²)
	result := new(saferith.Nat).Exp(ct.c, sk.phi, sk.nSquared)
	// r = c^Phi - 1
	result.Sub(result, oneNat, -1)
	// r = [(c^Phi - 1)/N]
	result.Div(result, sk.n, -1)
	// r = [(c^Phi - 1)/N] • Phi^-1		(mod N)
	result.ModMul(result, sk.phiInv, sk.n)

	// see 6.1 https://www.iacr.org/archive/crypto2001/21390136.pdf
	m := new(saferith.Int).SetModSymmetric(result, sk.n)
	// SetModSymmetric leaves the sign set on 0
	if m.Abs().EqZero() == 1 {
		return new(saferith.Int).SetUint64(0), nil
	}
	return m, nil
}

// DecWithRandomness returns the underlying plaintext, as well as the randomness used.
func (sk *SecretKey) DecWithRandomness(ct *Ciphertext) (*saferith.Int, *saferith.Nat, error) {
	m, err := sk.Dec(ct)
	if err != nil {
		return nil, nil, err
	}
	mNeg := new(saferith.Int).SetInt(m).Neg(1)

	// x = C(N+1)⁻ᵐ (mod N)
	x := new(saferith.Nat).ExpI(sk.nPlusOne, mNeg, sk.n)
	x.ModMul(x, ct.c, sk.n)

	// r = xⁿ⁻¹ (mod N)
	r := new(saferith.Nat).Exp(x, sk.nInv, sk.n)
	return m, r, nil
}

// DecUint64 decrypts ct and checks that the plaintext fits in an unsigned 64-bit integer.
func (sk *SecretKey) DecUint64(ct *Ciphertext) (uint64, *saferith.Nat, error) {
	m, nonce, err := sk.DecWithRandomness(ct)
	if err != nil {
		return 0, nil, err
	}
	if m.IsNegative() == 1 {
		return 0, nil, fmt.Errorf("paillier: plaintext is negative")
	}
	abs := m.Abs()
	if abs.TrueLen() > params.BitsClearValue {
		return 0, nil, fmt.Errorf("paillier: plaintext exceeds %d bits", params.BitsClearValue)
	}
	return abs.Big().Uint64(), nonce, nil
}

// ValidatePrime checks whether p is a suitable prime for Paillier.
// Checks:
// - log₂(p) ≡ params.BitsBlumPrime.
// - p ≡ 3 (mod 4).
// - q := (p-1)/2 is prime.
func ValidatePrime(p *saferith.Nat) error {
	if p == nil {
		return ErrPrimeNil
	}
	// check bit lengths
	const bitsWant = params.BitsBlumPrime
	// Technically, this leaks the number of bits, but this is fine, since returning
	// an error asserts this number statically, anyways.
	if bits := p.TrueLen(); bits != bitsWant {
		return fmt.Errorf("invalid prime size: have: %d, need %d: %w", bits, bitsWant, ErrPrimeBadLength)
	}
	// check == 3 (mod 4)
	if p.Byte(0)&0b11 != 3 {
		return ErrNotBlum
	}

	// check (p-1)/2 is prime
	pMinus1Div2 := new(saferith.Nat).Rsh(p, 1, -1)

	if !pMinus1Div2.Big().ProbablyPrime(1) {
		return ErrNotSafePrime
	}
	return nil
}

type secretKeyEncoding struct {
	P, Q []byte
}

// MarshalBinary encodes the two prime factors with cbor.
func (sk *SecretKey) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(secretKeyEncoding{P: sk.p.Bytes(), Q: sk.q.Bytes()})
}

// UnmarshalBinary decodes and validates both prime factors.
func (sk *SecretKey) UnmarshalBinary(data []byte) error {
	var enc secretKeyEncoding
	if err := cbor.Unmarshal(data, &enc); err != nil {
		return err
	}
	p := new(saferith.Nat).SetBytes(enc.P)
	q := new(saferith.Nat).SetBytes(enc.Q)
	if err := ValidatePrime(p); err != nil {
		return fmt.Errorf("paillier: p: %w", err)
	}
	if err := ValidatePrime(q); err != nil {
		return fmt.Errorf("paillier: q: %w", err)
	}
	decoded := NewSecretKeyFromPrimes(p, q)
	if err := ValidateN(decoded.n); err != nil {
		return fmt.Errorf("paillier: N: %w", err)
	}
	*sk = *decoded
	return nil
}
