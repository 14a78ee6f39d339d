package systems

import "errors"

var (
	ErrNilSystem      = errors.New("system is nil")
	ErrSystemExists   = errors.New("system already registered")
	ErrSystemNotFound = errors.New("system not found")
)
