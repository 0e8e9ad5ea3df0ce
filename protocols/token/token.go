package token

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/disclosure"
	"github.com/taurusgroup/confidential-ico/pkg/protocol"
)

// balance is the encrypted balance of a holder, along with its disclosure state.
type balance = disclosure.Subject[common.Address, uint64]

// BalanceRecord is the public view of a holder's balance.
type BalanceRecord struct {
	EncryptedBalance confidential.Handle
	// ClearBalance is 0 until the holder has verified a decryption
	ClearBalance uint64
	Decryptable  bool
	Exists       bool
}

// Info is the token metadata.
type Info struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply uint64
	Owner       common.Address
	ICOContract common.Address
}

// Token is a ledger of encrypted balances.
// Only the total supply, allowances and transferred amounts are public.
type Token struct {
	contract *protocol.Contract
	cfg      Config

	// ico is set at most once
	ico         *common.Address
	totalSupply uint64
	balances    map[common.Address]*balance
	allowances  map[common.Address]map[common.Address]uint64
}

// New deploys a Token, and mints cfg.InitialSupply to the owner.
func New(cfg Config) (*Token, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Token{
		contract:   protocol.NewContract(cfg.Symbol, cfg.Address, cfg.Log),
		cfg:        cfg,
		balances:   make(map[common.Address]*balance),
		allowances: make(map[common.Address]map[common.Address]uint64),
	}
	if cfg.InitialSupply > 0 {
		if err := t.Mint(cfg.Owner, cfg.Owner, cfg.InitialSupply); err != nil {
			return nil, fmt.Errorf("token: initial supply: %w", err)
		}
	}
	t.contract.Log.Info().Str("owner", cfg.Owner.Hex()).Uint64("supply", cfg.InitialSupply).Msg("deployed")
	return t, nil
}

// Address of the token contract.
func (t *Token) Address() common.Address {
	return t.contract.Address()
}

// SubscribeEvents delivers every future notification of the token to ch.
func (t *Token) SubscribeEvents(ch chan<- protocol.Notification) event.Subscription {
	return t.contract.Subscribe(ch)
}

// Close ends all subscriptions.
func (t *Token) Close() {
	t.contract.Close()
}

// SetICOContract links the ICO allowed to mint. It can only be done once.
func (t *Token) SetICOContract(caller, ico common.Address) error {
	return t.contract.Exec("setICOContract", caller, func(tx *protocol.Tx) error {
		if caller != t.cfg.Owner {
			return ErrOnlyOwner
		}
		if t.ico != nil {
			return ErrICOAlreadySet
		}
		if ico == (common.Address{}) {
			return ErrInvalidAddress
		}
		t.ico = &ico
		tx.Emit(ICOContractSet{ICO: ico})
		return nil
	})
}

// Mint credits amount to to. Only the owner and the linked ICO may mint.
func (t *Token) Mint(caller, to common.Address, amount uint64) error {
	return t.contract.Exec("mint", caller, func(tx *protocol.Tx) error {
		if caller != t.cfg.Owner && (t.ico == nil || caller != *t.ico) {
			return ErrOnlyOwner
		}
		if to == (common.Address{}) {
			return ErrMintToZero
		}
		if amount == 0 {
			return ErrInvalidAmount
		}
		if t.totalSupply > math.MaxUint64-amount {
			return ErrSupplyOverflow
		}
		credited, err := t.cfg.Engine.Add(t.handleOf(to), t.cfg.Engine.Encrypt(amount))
		if err != nil {
			return err
		}
		t.totalSupply += amount
		t.record(to).Track(credited)
		tx.Emit(Mint{To: to, Amount: amount})
		return nil
	})
}

// Burn destroys amount of the caller's tokens.
func (t *Token) Burn(caller common.Address, amount uint64) error {
	return t.contract.Exec("burn", caller, func(tx *protocol.Tx) error {
		if amount == 0 {
			return ErrInvalidAmount
		}
		debited, err := t.debit(caller, amount)
		if err != nil {
			return err
		}
		t.totalSupply -= amount
		t.record(caller).Track(debited)
		tx.Emit(Transfer{From: caller, To: common.Address{}, Amount: amount})
		return nil
	})
}

// Transfer moves amount from the caller to to.
func (t *Token) Transfer(caller, to common.Address, amount uint64) error {
	return t.contract.Exec("transfer", caller, func(tx *protocol.Tx) error {
		return t.move(tx, caller, to, amount)
	})
}

// TransferFrom moves amount from from to to, spending the caller's allowance.
func (t *Token) TransferFrom(caller, from, to common.Address, amount uint64) error {
	return t.contract.Exec("transferFrom", caller, func(tx *protocol.Tx) error {
		allowed := t.allowances[from][caller]
		if allowed < amount {
			return ErrAllowanceExceeded
		}
		if err := t.move(tx, from, to, amount); err != nil {
			return err
		}
		t.allowances[from][caller] = allowed - amount
		return nil
	})
}

// Approve sets the amount spender may transfer on behalf of the caller.
func (t *Token) Approve(caller, spender common.Address, amount uint64) error {
	return t.contract.Exec("approve", caller, func(tx *protocol.Tx) error {
		if spender == (common.Address{}) {
			return ErrInvalidAddress
		}
		t.approve(tx, caller, spender, amount)
		return nil
	})
}

// ApproveICO lets the linked ICO spend amount of the owner's tokens.
func (t *Token) ApproveICO(caller common.Address, amount uint64) error {
	return t.contract.Exec("approveICO", caller, func(tx *protocol.Tx) error {
		if caller != t.cfg.Owner {
			return ErrOnlyOwner
		}
		if t.ico == nil {
			return ErrICONotSet
		}
		t.approve(tx, caller, *t.ico, amount)
		return nil
	})
}

// MakeMyBalanceDecryptable authorises the oracle to decrypt the caller's current balance.
func (t *Token) MakeMyBalanceDecryptable(caller common.Address) error {
	return t.contract.Exec("makeMyBalanceDecryptable", caller, func(tx *protocol.Tx) error {
		b, ok := t.balances[caller]
		if !ok {
			return ErrNoBalance
		}
		if b.Decryptable() {
			return fmt.Errorf("%w: %w", ErrAlreadyDecryptable, disclosure.ErrAlreadySet)
		}
		if b.Handle().IsZero() {
			return fmt.Errorf("%w: %w", ErrNoBalance, disclosure.ErrNothingToDisclose)
		}
		if _, err := t.cfg.Engine.RequestDecryption(b.Handle()); err != nil {
			return err
		}
		if _, err := b.Authorize(); err != nil {
			return err
		}
		tx.Emit(BalanceMadeDecryptable{User: caller})
		return nil
	})
}

// VerifyMyBalance stores the clear balance of the caller, if proof checks out against the authorised balance.
func (t *Token) VerifyMyBalance(caller common.Address, clear, proof []byte) error {
	return t.contract.Exec("verifyMyBalance", caller, func(tx *protocol.Tx) error {
		b, ok := t.balances[caller]
		if !ok {
			return ErrNoBalance
		}
		amount, err := b.Reveal(t.cfg.Verifier, clear, proof, disclosure.Uint64)
		if err != nil {
			return err
		}
		tx.Emit(BalanceDecrypted{User: caller, Amount: amount})
		return nil
	})
}

// ResetMyDecryptableStatus forgets the caller's revealed balance, so that a newer balance can be disclosed.
func (t *Token) ResetMyDecryptableStatus(caller common.Address) error {
	return t.contract.Exec("resetMyDecryptableStatus", caller, func(tx *protocol.Tx) error {
		b, ok := t.balances[caller]
		if !ok {
			return ErrNoBalance
		}
		return b.Reset()
	})
}

func (t *Token) move(tx *protocol.Tx, from, to common.Address, amount uint64) error {
	if to == (common.Address{}) {
		return ErrTransferToZero
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	debited, err := t.debit(from, amount)
	if err != nil {
		return err
	}
	toHandle := t.handleOf(to)
	if to == from {
		toHandle = debited
	}
	credited, err := t.cfg.Engine.Add(toHandle, t.cfg.Engine.Encrypt(amount))
	if err != nil {
		return err
	}

	t.record(from).Track(debited)
	t.record(to).Track(credited)
	tx.Emit(Transfer{From: from, To: to, Amount: amount})
	tx.Emit(EncryptedTransfer{From: from, To: to})
	return nil
}

// debit computes from's balance minus amount, without storing it.
func (t *Token) debit(from common.Address, amount uint64) (confidential.Handle, error) {
	debited, err := t.cfg.Engine.Sub(t.handleOf(from), t.cfg.Engine.Encrypt(amount))
	if errors.Is(err, confidential.ErrAssertion) {
		return confidential.ZeroHandle, fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
	}
	return debited, err
}

func (t *Token) approve(tx *protocol.Tx, owner, spender common.Address, amount uint64) {
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]uint64)
	}
	t.allowances[owner][spender] = amount
	tx.Emit(Approval{Owner: owner, Spender: spender, Amount: amount})
}

func (t *Token) handleOf(holder common.Address) confidential.Handle {
	if b, ok := t.balances[holder]; ok {
		return b.Handle()
	}
	return confidential.ZeroHandle
}

// record returns the balance of holder, creating it on first credit.
func (t *Token) record(holder common.Address) *balance {
	b, ok := t.balances[holder]
	if !ok {
		created := disclosure.NewSubject[common.Address, uint64](holder)
		b = &created
		t.balances[holder] = b
	}
	return b
}
