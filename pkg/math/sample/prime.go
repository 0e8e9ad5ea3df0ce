package sample

import (
	"io"
	"math/big"
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/confidential-ico/internal/params"
	"github.com/taurusgroup/confidential-ico/pkg/pool"
)

const (
	// sieveBound is the upper bound on the small primes used for sieving.
	sieveBound = 1 << 18

	// window is the number of candidates base, base+4, base+8, … examined per random base.
	window = 1 << 16

	// blumPrimalityIterations is the number of Miller-Rabin rounds applied to (p-1)/2.
	// 20 is the same number that Go uses internally.
	blumPrimalityIterations = 20
)

var (
	smallPrimes     []uint64
	smallPrimesOnce sync.Once
)

// oddPrimesBelow returns every odd prime strictly below bound.
func oddPrimesBelow(bound int) []uint64 {
	composite := make([]bool, bound)
	out := make([]uint64, 0, bound/10)
	for p := 3; p < bound; p += 2 {
		if composite[p] {
			continue
		}
		out = append(out, uint64(p))
		for m := p * p; m < bound; m += 2 * p {
			composite[m] = true
		}
	}
	return out
}

// inverseOf4 returns 4⁻¹ mod p for an odd prime p.
func inverseOf4(p uint64) uint64 {
	half := (p + 1) / 2 // 2⁻¹ mod p
	return half * half % p
}

// safeBlumPrime samples a random base with the top two bits set, and looks for
// p ∈ {base, base+4, …} such that p ≡ 3 (mod 4) and both p and (p-1)/2 are prime.
//
// It returns false when the window is exhausted, in which case the caller should retry.
func safeBlumPrime(rand io.Reader, bits int) (*saferith.Nat, bool) {
	smallPrimesOnce.Do(func() {
		smallPrimes = oddPrimesBelow(sieveBound)
	})

	buf := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, false
	}
	base := new(big.Int).SetBytes(buf)
	// Keep exactly bits bits, with the top two set so that p⋅q has 2⋅bits bits.
	for i := base.BitLen() - 1; i >= bits; i-- {
		base.SetBit(base, i, 0)
	}
	base.SetBit(base, bits-1, 1)
	base.SetBit(base, bits-2, 1)
	base.SetBit(base, 1, 1)
	base.SetBit(base, 0, 1)

	// rejected[i] is set when base+4i, or (base+4i-1)/2, has a small factor.
	rejected := make([]bool, window)
	var r, m big.Int
	for _, sp := range smallPrimes {
		rem := r.Mod(base, m.SetUint64(sp)).Uint64()
		inv := inverseOf4(sp)
		// base+4i ≡ 0 kills p, base+4i ≡ 1 kills (p-1)/2.
		for _, bad := range [2]uint64{0, 1} {
			for i := (bad + sp - rem) % sp * inv % sp; i < window; i += sp {
				rejected[i] = true
			}
		}
	}

	p, q := new(big.Int), new(big.Int)
	four := big.NewInt(4)
	p.Sub(base, four)
	for i := 0; i < window; i++ {
		p.Add(p, four)
		if rejected[i] {
			continue
		}
		if p.BitLen() > bits {
			return nil, false
		}
		q.Rsh(p, 1)
		// (p-1)/2 is the check most likely to fail, so it goes first.
		if !q.ProbablyPrime(blumPrimalityIterations) {
			continue
		}
		if !p.ProbablyPrime(0) {
			continue
		}
		return new(saferith.Nat).SetBig(p, bits), true
	}
	return nil, false
}

// Paillier generates the two factors of a Paillier modulus.
// p, q are safe primes ((p - 1) / 2 is also prime), and Blum primes (p = 3 mod 4).
func Paillier(rand io.Reader, pl *pool.Pool) (p, q *saferith.Nat) {
	reader := pool.NewLockedReader(rand)
	for {
		found := pool.Search(pl, 2, func() (*saferith.Nat, bool) {
			return safeBlumPrime(reader, params.BitsBlumPrime)
		})
		if found[0].Eq(found[1]) != 1 {
			return found[0], found[1]
		}
	}
}
