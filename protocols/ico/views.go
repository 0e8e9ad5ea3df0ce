package ico

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
)

// ContributionRecord is the public view of an account's contribution.
type ContributionRecord struct {
	EncryptedAmount confidential.Handle
	// ClearAmount is 0 until the contributor has verified a decryption
	ClearAmount       uint64
	HasContributed    bool
	AmountDecryptable bool
	TokensClaimed     bool
	// Paid is the public sum of the account's payments
	Paid *uint256.Int
}

// Info is the public state of the sale.
type Info struct {
	Start, End       time.Time
	Finalized        bool
	TotalDecryptable bool
	// ClearTotal is 0 until the total has been verified
	ClearTotal uint64
}

// SaleInfo returns the window and the disclosure state of the total, in one consistent read.
func (s *Sale) SaleInfo() (info Info) {
	s.contract.View(func() {
		info = Info{
			Start:            s.start,
			End:              s.end,
			Finalized:        s.finalized(s.cfg.Clock()),
			TotalDecryptable: s.total.Decryptable(),
			ClearTotal:       s.total.Value(),
		}
	})
	return
}

func (s *Sale) Status() (status Status) {
	s.contract.View(func() {
		if s.finalized(s.cfg.Clock()) {
			status = StatusFinalized
		}
	})
	return
}

// Finalized returns true once the admission window is over.
func (s *Sale) Finalized() (ok bool) {
	s.contract.View(func() {
		ok = s.finalized(s.cfg.Clock())
	})
	return
}

func (s *Sale) HardCap() *uint256.Int {
	return s.cfg.HardCap.Clone()
}

func (s *Sale) TokenSupply() uint64 {
	return s.cfg.TokenSupply
}

func (s *Sale) Owner() common.Address {
	return s.cfg.Owner
}

// Raised returns the public sum of all accepted payments.
func (s *Sale) Raised() (raised *uint256.Int) {
	s.contract.View(func() {
		raised = s.raised.Clone()
	})
	return
}

// Treasury returns the payments that have not been withdrawn yet.
func (s *Sale) Treasury() (treasury *uint256.Int) {
	s.contract.View(func() {
		treasury = s.treasury.Clone()
	})
	return
}

// TokenContract returns the address of the linked token, or the zero address.
func (s *Sale) TokenContract() (addr common.Address) {
	s.contract.View(func() {
		if s.token != nil {
			addr = s.token.Address()
		}
	})
	return
}

func (s *Sale) ContributorsCount() (n int) {
	s.contract.View(func() {
		n = len(s.contributors)
	})
	return
}

// Contributor returns the i-th contributor, in order of first contribution.
func (s *Sale) Contributor(i int) (addr common.Address, ok bool) {
	s.contract.View(func() {
		if i >= 0 && i < len(s.contributors) {
			addr, ok = s.contributors[i], true
		}
	})
	return
}

// Contribution returns the record of contributor, the zero record if it never contributed.
func (s *Sale) Contribution(contributor common.Address) (r ContributionRecord) {
	r.Paid = new(uint256.Int)
	s.contract.View(func() {
		c, ok := s.contributions[contributor]
		if !ok {
			return
		}
		r = ContributionRecord{
			EncryptedAmount:   c.amount.Handle(),
			ClearAmount:       c.amount.Value(),
			HasContributed:    true,
			AmountDecryptable: c.amount.Decryptable(),
			TokensClaimed:     c.claimed,
			Paid:              c.paid.Clone(),
		}
	})
	return
}

// EncryptedContribution returns the handle of contributor's running amount.
func (s *Sale) EncryptedContribution(contributor common.Address) (h confidential.Handle) {
	s.contract.View(func() {
		if c, ok := s.contributions[contributor]; ok {
			h = c.amount.Handle()
		}
	})
	return
}

// EncryptedTotal returns the handle of the aggregate total.
func (s *Sale) EncryptedTotal() (h confidential.Handle) {
	s.contract.View(func() {
		h = s.total.Handle()
	})
	return
}
