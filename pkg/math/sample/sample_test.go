package sample

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOddPrimesBelow(t *testing.T) {
	assert.Equal(t, []uint64{3, 5, 7, 11, 13, 17, 19, 23, 29}, oddPrimesBelow(30))
}

func TestInverseOf4(t *testing.T) {
	for _, p := range oddPrimesBelow(200) {
		assert.Equal(t, uint64(1), 4*inverseOf4(p)%p, "p = %d", p)
	}
}

func TestSafeBlumPrime(t *testing.T) {
	const bits = 192
	var (
		p  *saferith.Nat
		ok bool
	)
	for !ok {
		p, ok = safeBlumPrime(rand.Reader, bits)
	}
	pBig := p.Big()
	assert.Equal(t, bits, pBig.BitLen())
	assert.Equal(t, uint64(3), new(big.Int).Mod(pBig, big.NewInt(4)).Uint64())
	assert.True(t, pBig.ProbablyPrime(20))
	assert.True(t, new(big.Int).Rsh(pBig, 1).ProbablyPrime(20))
}

func TestUnitModN(t *testing.T) {
	n := saferith.ModulusFromUint64(3 * 5 * 7 * 11)
	for i := 0; i < 100; i++ {
		u := UnitModN(rand.Reader, n)
		_, _, lt := u.CmpMod(n)
		require.Equal(t, saferith.Choice(1), lt)
		require.Equal(t, saferith.Choice(1), u.IsUnit(n))
	}
}
