package ico

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
	"github.com/taurusgroup/confidential-ico/pkg/protocol"
)

// MakeTotalDecryptable authorises the oracle to decrypt the aggregate total.
// It is owner only, and only once the window is over.
func (s *Sale) MakeTotalDecryptable(caller common.Address) error {
	return s.contract.Exec("makeTotalDecryptable", caller, func(tx *protocol.Tx) error {
		if caller != s.cfg.Owner {
			return ErrOnlyOwner
		}
		if !s.finalized(s.cfg.Clock()) {
			return ErrSaleStillRunning
		}
		if err := s.authorize(&s.total); err != nil {
			return err
		}
		tx.Emit(TotalMadeDecryptable{})
		return nil
	})
}

// VerifyAndSetTotal stores the clear total, if proof checks out.
// Anyone holding the oracle's response may submit it.
func (s *Sale) VerifyAndSetTotal(caller common.Address, clear, proof []byte) error {
	return s.contract.Exec("verifyAndSetTotal", caller, func(tx *protocol.Tx) error {
		total, err := s.total.Reveal(s.cfg.Verifier, clear, proof, bounded(s.raised))
		if err != nil {
			return err
		}
		tx.Emit(TotalDecrypted{Total: total})
		s.contract.Log.Info().Uint64("total", total).Msg("total verified")
		return nil
	})
}

// MakeMyContributionDecryptable authorises the oracle to decrypt the caller's contribution.
func (s *Sale) MakeMyContributionDecryptable(caller common.Address) error {
	return s.contract.Exec("makeMyContributionDecryptable", caller, func(tx *protocol.Tx) error {
		c, err := s.record(caller)
		if err != nil {
			return err
		}
		if !s.finalized(s.cfg.Clock()) {
			return ErrSaleStillRunning
		}
		if err = s.authorize(&c.amount); err != nil {
			return err
		}
		tx.Emit(ContributionMadeDecryptable{Contributor: caller})
		return nil
	})
}

// VerifyMyContribution stores the clear contribution of the caller, if proof checks out.
func (s *Sale) VerifyMyContribution(caller common.Address, clear, proof []byte) error {
	return s.contract.Exec("verifyMyContribution", caller, func(tx *protocol.Tx) error {
		c, err := s.record(caller)
		if err != nil {
			return err
		}
		amount, err := c.amount.Reveal(s.cfg.Verifier, clear, proof, bounded(c.paid))
		if err != nil {
			return err
		}
		tx.Emit(ContributionDecrypted{Contributor: caller, Amount: amount})
		return nil
	})
}

// authorize requests the decryption of the subject's current handle, and moves it to AwaitingProof.
// The subject is left untouched on failure.
func (s *Sale) authorize(subject *disclosure.Subject[common.Address, uint64]) error {
	if subject.Decryptable() {
		return disclosure.ErrAlreadySet
	}
	h := subject.Handle()
	if h.IsZero() {
		return disclosure.ErrNothingToDisclose
	}
	if _, err := s.cfg.Engine.RequestDecryption(h); err != nil {
		return err
	}
	_, err := subject.Authorize()
	return err
}

// bounded returns a decoder rejecting clear values above limit.
// Declared amounts never exceed their payment, so a larger value cannot be genuine.
func bounded(limit *uint256.Int) func([]byte) (uint64, error) {
	return func(clear []byte) (uint64, error) {
		v, err := disclosure.Uint64(clear)
		if err != nil {
			return 0, err
		}
		if uint256.NewInt(v).Gt(limit) {
			return 0, ErrInconsistentClearValue
		}
		return v, nil
	}
}
