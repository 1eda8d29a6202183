package service

import "errors"

// Centralized service layer errors. All errors returned by service methods
// wrap one of these sentinels so handlers can map them to HTTP statuses with
// errors.Is.
var (
	ErrDuplicateIdentity  = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("invalid input")
	ErrRosterFull         = errors.New("adventure roster is full")
	ErrSessionExists      = errors.New("adventure already has an active session")
	ErrGeneration         = errors.New("story generation failed")
)
