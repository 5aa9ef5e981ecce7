package exception

import "github.com/yanun0323/errors"

var (
	ErrNilStrategy     = errors.New("execution: nil strategy")
	ErrExecutionFailed = errors.New("execution: failed")
	ErrExecutionPanic  = errors.New("execution: panic recovered")
)
