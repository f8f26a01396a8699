package auth

import (
	"errors"
	"fmt"
)

// ErrInvalidAccessToken is the parent of every access token validation failure.
var ErrInvalidAccessToken = errors.New("invalid access token")

var (
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidAccessToken)
	ErrTokenExpired     = fmt.Errorf("%w: token expired", ErrInvalidAccessToken)
	ErrSubjectMismatch  = fmt.Errorf("%w: subject mismatch", ErrInvalidAccessToken)
	ErrMalformedToken   = fmt.Errorf("%w: malformed token", ErrInvalidAccessToken)
)
