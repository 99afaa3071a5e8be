package flashloan

import "errors"

var (
	// ErrUnprofitable is an expected business outcome, not a defect;
	// callers skip and retry next cycle
	ErrUnprofitable = errors.New("trade does not clear minimum profit")

	// ErrInvalidAmount means the principal is outside the governed bounds
	ErrInvalidAmount = errors.New("flash loan amount outside configured bounds")

	// ErrInsufficientRepayment aborts the whole atomic batch; nothing may
	// ever observe a partially repaid loan
	ErrInsufficientRepayment = errors.New("insufficient funds to repay flash loan")

	ErrVenueNotApproved = errors.New("venue is not approved")
	ErrTokenNotAllowed  = errors.New("token is not whitelisted")
)
