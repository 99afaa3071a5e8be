package settlement

import "errors"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDeadlinePassed      = errors.New("swap deadline period has passed")
	ErrSlippageExceeded    = errors.New("output below minimum amount")
)
