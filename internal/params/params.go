package params

import "time"

const (
	SecParam = 256
	SecBytes = SecParam / 8

	// StatParam bounds the probability that a Miller-Rabin test lets a composite through.
	StatParam = 80

	BitsIntModN  = 8 * SecParam    // = 2048
	BytesIntModN = BitsIntModN / 8 // = 256

	BitsBlumPrime = 4 * SecParam      // = 1024
	BitsPaillier  = 2 * BitsBlumPrime // = 2048

	BytesPaillier   = BitsPaillier / 8  // = 256
	BytesCiphertext = 2 * BytesPaillier // = 512

	// BytesHandle is the size of a confidential value handle.
	BytesHandle = SecBytes // = 32

	// BitsClearValue is the width of every clear value the ledger discloses (euint64).
	BitsClearValue = 64
)

const (
	// SaleDuration is the admission window opened when a sale is deployed.
	SaleDuration = 60 * 24 * time.Hour

	// HardCapWei is the default public maximum raise, 0.1 ETH.
	HardCapWei uint64 = 100_000_000_000_000_000

	// TokenDecimals is the number of decimals of the issued token.
	TokenDecimals = 6

	// TokenSupply is the number of base units distributed pro-rata to contributors.
	TokenSupply uint64 = 1_000_000 * 1_000_000

	TokenName   = "PrivateToken"
	TokenSymbol = "PVTK"
)
