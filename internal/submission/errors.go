package submission

import "fmt"

// ValidationError reports user-correctable input. Message is safe to return
// to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

const (
	MsgInvalidURL   = "Invalid url"
	MsgSelfApply    = "Cannot apply to offer published by yourself"
	MsgCapacityFull = "Offer has reached its maximum capacity"
)
