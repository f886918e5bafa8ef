package domain

import "errors"

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalServer     = errors.New("internal server error")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Approval chain errors
var (
	ErrLeaveNotFound           = errors.New("leave request not found")
	ErrAlreadyDecided          = errors.New("leave request already decided")
	ErrStagePrerequisiteNotMet = errors.New("earlier approval stage not approved yet")
	ErrStageAlreadyDecided     = errors.New("approval stage already decided")
	ErrUnknownStage            = errors.New("unknown approval stage")
)

// Gate scan errors
var (
	ErrMalformedToken       = errors.New("gate token is malformed")
	ErrUnknownToken         = errors.New("gate token not recognized")
	ErrNotApproved          = errors.New("leave request not approved")
	ErrOutsideLeaveWindow   = errors.New("outside the approved leave window")
	ErrCycleAlreadyComplete = errors.New("exit and return already recorded")
)
