package library

import "errors"

// Domain-state conflicts and lookup failures surfaced to callers. Handlers
// map these onto HTTP statuses; everything else is an internal error.
var (
	ErrNotFound        = errors.New("not found")
	ErrNoCopies        = errors.New("no copies available")
	ErrAlreadyReturned = errors.New("already returned")
	ErrPhoneInUse      = errors.New("phone number already used by another borrower")
	ErrUsernameTaken   = errors.New("username taken")
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrNoBorrower      = errors.New("no borrower profile attached to this account")
)
