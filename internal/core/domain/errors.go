package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation wraps every input validation failure.
	ErrValidation = errors.New("validation failed")
	// ErrProjectNotFound is the ErrNotFound of projects.
	ErrProjectNotFound = fmt.Errorf("project %w", ErrNotFound)
)
