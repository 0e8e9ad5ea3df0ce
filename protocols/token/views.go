package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
)

// BalanceOf returns the handle of holder's encrypted balance, the zero handle if it has never been credited.
func (t *Token) BalanceOf(holder common.Address) (h confidential.Handle) {
	t.contract.View(func() {
		h = t.handleOf(holder)
	})
	return
}

// ClearBalance returns the last verified balance of holder, or 0.
func (t *Token) ClearBalance(holder common.Address) (amount uint64) {
	t.contract.View(func() {
		if b, ok := t.balances[holder]; ok {
			amount = b.Value()
		}
	})
	return
}

func (t *Token) BalanceDecryptable(holder common.Address) (ok bool) {
	t.contract.View(func() {
		if b, exists := t.balances[holder]; exists {
			ok = b.Decryptable()
		}
	})
	return
}

// HasBalance returns true once holder has been credited, even if the balance has since dropped to 0.
func (t *Token) HasBalance(holder common.Address) (ok bool) {
	t.contract.View(func() {
		_, ok = t.balances[holder]
	})
	return
}

func (t *Token) TotalSupply() (supply uint64) {
	t.contract.View(func() {
		supply = t.totalSupply
	})
	return
}

// Allowance returns the amount spender may still transfer on behalf of owner.
func (t *Token) Allowance(owner, spender common.Address) (amount uint64) {
	t.contract.View(func() {
		amount = t.allowances[owner][spender]
	})
	return
}

// Balance returns the whole record of holder in one consistent read.
func (t *Token) Balance(holder common.Address) (r BalanceRecord) {
	t.contract.View(func() {
		b, ok := t.balances[holder]
		if !ok {
			return
		}
		r = BalanceRecord{
			EncryptedBalance: b.Handle(),
			ClearBalance:     b.Value(),
			Decryptable:      b.Decryptable(),
			Exists:           true,
		}
	})
	return
}

func (t *Token) Info() (info Info) {
	t.contract.View(func() {
		info = Info{
			Name:        t.cfg.Name,
			Symbol:      t.cfg.Symbol,
			Decimals:    t.cfg.Decimals,
			TotalSupply: t.totalSupply,
			Owner:       t.cfg.Owner,
		}
		if t.ico != nil {
			info.ICOContract = *t.ico
		}
	})
	return
}
