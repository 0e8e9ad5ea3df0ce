package token

import "github.com/ethereum/go-ethereum/common"

// Transfer is emitted for every move of tokens, burns go to the zero address.
type Transfer struct {
	From, To common.Address
	Amount   uint64
}

// EncryptedTransfer is emitted alongside Transfer for transfers between holders.
type EncryptedTransfer struct {
	From, To common.Address
}

type Mint struct {
	To     common.Address
	Amount uint64
}

type Approval struct {
	Owner, Spender common.Address
	Amount         uint64
}

type ICOContractSet struct {
	ICO common.Address
}

type BalanceMadeDecryptable struct {
	User common.Address
}

type BalanceDecrypted struct {
	User   common.Address
	Amount uint64
}

func (Transfer) EventName() string               { return "Transfer" }
func (EncryptedTransfer) EventName() string      { return "EncryptedTransfer" }
func (Mint) EventName() string                   { return "Mint" }
func (Approval) EventName() string               { return "Approval" }
func (ICOContractSet) EventName() string         { return "ICOContractSet" }
func (BalanceMadeDecryptable) EventName() string { return "BalanceMadeDecryptable" }
func (BalanceDecrypted) EventName() string       { return "BalanceDecrypted" }
