package test

import (
	"sync"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/taurusgroup/confidential-ico/internal/hash"
	"github.com/taurusgroup/confidential-ico/pkg/oracle"
	"github.com/taurusgroup/confidential-ico/pkg/paillier"
)

// Safe Blum primes of params.BitsBlumPrime bits, so that tests do not have to search for new ones.
const (
	primeP = "D08769E92F80F7FDFB85EC02AFFDAED0FDE2782070757F191DCDC4D108110AC1E31C07FC253B5F7B91C5D9F203AA0572D3F2062A3D2904C535C6ACCA7D5674E1C2640720E762C72B66931F483C2D910908CF02EA6723A0CBBB1016CA696C38FEAC59B31E40584C8141889A11F7A38F5B17811D11F42CD15B8470F11C6183802B"
	primeQ = "C21239C3484FC3C8409F40A9A22FABFFE26CA10C27506E3E017C2EC8C4B98D7A6D30DED0686869884BE9BAD27F5241B7313F73D19E9E4B384FABF9554B5BB4D517CBAC0268420C63D545612C9ADABEEDF20F94244E7F8F2080B0C675AC98D97C580D43375F999B1AC127EC580B89B2D302EF33DD5FD8474A241B0398F6088CA7"
)

var (
	paillierOnce   sync.Once
	paillierSecret *paillier.SecretKey
)

// PaillierSecretKey returns a fixed Paillier key, built once.
func PaillierSecretKey() *paillier.SecretKey {
	paillierOnce.Do(func() {
		p, err := new(saferith.Nat).SetHex(primeP)
		if err != nil {
			panic(err)
		}
		q, err := new(saferith.Nat).SetHex(primeQ)
		if err != nil {
			panic(err)
		}
		paillierSecret = paillier.NewSecretKeyFromPrimes(p, q)
	})
	return paillierSecret
}

// AttestationKey returns a deterministic secp256k1 key derived from seed.
func AttestationKey(seed string) *secp256k1.PrivateKey {
	return secp256k1.PrivKeyFromBytes(hash.New("attestation key", seed).Sum())
}

// OracleKeys returns the fixed Paillier key together with a deterministic attestation key.
func OracleKeys() *oracle.Keys {
	return &oracle.Keys{
		Paillier:    PaillierSecretKey(),
		Attestation: AttestationKey("oracle"),
	}
}
