package token

import "github.com/taurusgroup/confidential-ico/pkg/protocol"

var (
	ErrOnlyOwner          = protocol.NewFault(protocol.KindAuthorization, "Only owner")
	ErrInvalidAddress     = protocol.NewFault(protocol.KindAdmission, "Invalid address")
	ErrICOAlreadySet      = protocol.NewFault(protocol.KindIdempotence, "ICO already set")
	ErrICONotSet          = protocol.NewFault(protocol.KindAdmission, "ICO not set")
	ErrTransferToZero     = protocol.NewFault(protocol.KindAdmission, "Transfer to zero address")
	ErrMintToZero         = protocol.NewFault(protocol.KindAdmission, "Mint to zero address")
	ErrInvalidAmount      = protocol.NewFault(protocol.KindAdmission, "Amount required")
	ErrAllowanceExceeded  = protocol.NewFault(protocol.KindAuthorization, "Allowance exceeded")
	ErrNoBalance          = protocol.NewFault(protocol.KindAdmission, "No balance")
	ErrAlreadyDecryptable = protocol.NewFault(protocol.KindIdempotence, "Already decryptable")
	ErrSupplyOverflow     = protocol.NewFault(protocol.KindArithmetic, "Supply overflow")

	// ErrInsufficientBalance is all a caller learns when the engine refuses a debit.
	ErrInsufficientBalance = protocol.NewFault(protocol.KindArithmetic, "Insufficient balance")
)
