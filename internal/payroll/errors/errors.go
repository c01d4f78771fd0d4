package errors

import (
	"fmt"
)

var (
	ErrNotFound             = fmt.Errorf("not found")
	ErrInvalidInput         = fmt.Errorf("invalid input")
	ErrPersistence          = fmt.Errorf("persistence failure")
	ErrConfirmationRequired = fmt.Errorf("confirmation required")
)
