package ico

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
	"github.com/taurusgroup/confidential-ico/pkg/protocol"
)

// Contribute records a payment of value wei, along with a declared amount which is stored encrypted.
// declared may not exceed value.
//
// A payment which fills the cap exactly is accepted, and closes the sale.
// A payment which would go over it is rejected entirely.
func (s *Sale) Contribute(caller common.Address, value *uint256.Int, declared uint64) error {
	return s.contract.Exec("contribute", caller, func(tx *protocol.Tx) error {
		if value == nil || value.IsZero() {
			return ErrInsufficientPayment
		}
		if declared == 0 || uint256.NewInt(declared).Gt(value) {
			return ErrInvalidAmount
		}
		now := s.cfg.Clock()
		if !s.accepting(now) {
			return ErrSaleNotActive
		}
		raised, overflow := new(uint256.Int).AddOverflow(s.raised, value)
		if overflow || raised.Gt(s.cfg.HardCap) {
			return ErrHardCapExceeded
		}

		c := s.contributions[caller]
		account := confidential.ZeroHandle
		if c != nil {
			account = c.amount.Handle()
		}
		amount := s.cfg.Engine.Encrypt(declared)
		account, err := s.cfg.Engine.Add(account, amount)
		if err != nil {
			return err
		}
		total, err := s.cfg.Engine.Add(s.total.Handle(), amount)
		if err != nil {
			return err
		}

		if c == nil {
			c = &contribution{
				amount: disclosure.NewSubject[common.Address, uint64](caller),
				paid:   new(uint256.Int),
			}
			s.contributions[caller] = c
			s.contributors = append(s.contributors, caller)
		}
		c.amount.Track(account)
		c.paid.Add(c.paid, value)
		s.total.Track(total)
		s.raised = raised
		s.treasury.Add(s.treasury, value)
		tx.Emit(ContributionSubmitted{Contributor: caller, Value: value.Clone()})

		if !s.raised.Lt(s.cfg.HardCap) {
			tx.Emit(HardCapReached{Raised: s.raised.Clone()})
			s.closeAt(tx, now)
		}
		return nil
	})
}
