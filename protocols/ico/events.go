package ico

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ContributionSubmitted only carries the payment, which is public anyway.
type ContributionSubmitted struct {
	Contributor common.Address
	Value       *uint256.Int
}

// HardCapReached is emitted by the contribution which fills the cap, before SaleClosed.
type HardCapReached struct {
	Raised *uint256.Int
}

type SaleClosed struct {
	End time.Time
}

type TokenContractSet struct {
	Token common.Address
}

type TotalMadeDecryptable struct{}

type TotalDecrypted struct {
	Total uint64
}

type ContributionMadeDecryptable struct {
	Contributor common.Address
}

type ContributionDecrypted struct {
	Contributor common.Address
	Amount      uint64
}

type TokensClaimed struct {
	Contributor common.Address
	Amount      uint64
}

type FundsWithdrawn struct {
	To     common.Address
	Amount *uint256.Int
}

func (ContributionSubmitted) EventName() string       { return "ContributionSubmitted" }
func (HardCapReached) EventName() string              { return "HardCapReached" }
func (SaleClosed) EventName() string                  { return "SaleClosed" }
func (TokenContractSet) EventName() string            { return "TokenContractSet" }
func (TotalMadeDecryptable) EventName() string        { return "TotalMadeDecryptable" }
func (TotalDecrypted) EventName() string              { return "TotalDecrypted" }
func (ContributionMadeDecryptable) EventName() string { return "ContributionMadeDecryptable" }
func (ContributionDecrypted) EventName() string       { return "ContributionDecrypted" }
func (TokensClaimed) EventName() string               { return "TokensClaimed" }
func (FundsWithdrawn) EventName() string              { return "FundsWithdrawn" }
