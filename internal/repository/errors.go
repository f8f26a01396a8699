package repository

import "errors"

var (
	ErrNotFound    = errors.New("record not found")
	ErrAlreadyUsed = errors.New("refresh token already used")
	ErrDuplicate   = errors.New("duplicate record")
)
