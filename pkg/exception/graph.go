package exception

import "github.com/yanun0323/errors"

// Graph errors
var (
	ErrDuplicateID       = errors.New("graph: duplicate id")
	ErrUnknownDependency = errors.New("graph: unknown dependency")
	ErrStoreBusy         = errors.New("graph: store is being processed")
	ErrCorruptGraph      = errors.New("graph: corrupt graph")
	ErrInvalidTransition = errors.New("graph: invalid status transition")
	ErrUnknownItem       = errors.New("graph: item not found")
)
