package ico

import "github.com/taurusgroup/confidential-ico/pkg/protocol"

var (
	ErrInsufficientPayment = protocol.NewFault(protocol.KindAdmission, "ETH required")
	ErrInvalidAmount       = protocol.NewFault(protocol.KindAdmission, "Amount required")
	ErrSaleNotActive       = protocol.NewFault(protocol.KindAdmission, "Sale ended")
	ErrHardCapExceeded     = protocol.NewFault(protocol.KindAdmission, "Hard cap exceeded")
	ErrSaleStillRunning    = protocol.NewFault(protocol.KindAdmission, "Sale still running")
	ErrZeroAddress         = protocol.NewFault(protocol.KindAdmission, "Invalid address")
	ErrTokenNotLinked      = protocol.NewFault(protocol.KindAdmission, "Token contract not set")

	ErrOnlyOwner        = protocol.NewFault(protocol.KindAuthorization, "Only owner")
	ErrNotContributor   = protocol.NewFault(protocol.KindAuthorization, "Not a contributor")
	ErrNotVerified      = protocol.NewFault(protocol.KindAuthorization, "Contribution not verified")
	ErrTotalNotVerified = protocol.NewFault(protocol.KindAuthorization, "Total not verified")

	ErrAlreadyLinked     = protocol.NewFault(protocol.KindIdempotence, "Token contract already set")
	ErrAlreadyClaimed    = protocol.NewFault(protocol.KindIdempotence, "Tokens already claimed")
	ErrNothingToWithdraw = protocol.NewFault(protocol.KindIdempotence, "Nothing to withdraw")

	// ErrInconsistentClearValue is returned when a proven clear value contradicts the public payments.
	ErrInconsistentClearValue = protocol.NewFault(protocol.KindProof, "Inconsistent clear value")
)
