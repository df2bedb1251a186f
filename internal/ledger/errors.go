package ledger

import "errors"

// Error is a rejected command. Code is the stable numeric identifier exposed
// to clients; Kind is its symbolic name.
type Error struct {
	Code  int
	Kind  string
	class class
}

type class int

const (
	classInvalid class = iota
	classForbidden
	classNotFound
	classConflict
)

func (e *Error) Error() string { return "ledger: " + e.Kind }

func newError(code int, kind string, c class) *Error {
	return &Error{Code: code, Kind: kind, class: c}
}

// Identity errors
var (
	ErrUserAlreadyRegistered = newError(1, "UserAlreadyRegistered", classConflict)
	ErrUsernameTaken         = newError(26, "UsernameTaken", classConflict)
	ErrUserNotRegistered     = newError(7, "UserNotRegistered", classNotFound)
	ErrNotAdmin              = newError(2, "NotAdmin", classForbidden)
)

// Prediction market errors
var (
	ErrEventIDExists       = newError(3, "EventIdExists", classConflict)
	ErrEventNotOpen        = newError(5, "EventNotOpen", classConflict)
	ErrEventNotFound       = newError(8, "EventNotFound", classNotFound)
	ErrEventMustBeOpen     = newError(9, "EventMustBeOpen", classConflict)
	ErrEventMustBeResolved = newError(10, "EventMustBeResolved", classConflict)
	ErrNoWinners           = newError(11, "NoWinners", classConflict)
	ErrNoStakeFound        = newError(12, "NoStakeFound", classNotFound)
)

// Balance errors
var (
	// ErrInvalidAmount covers zero amounts and out-of-range parameters.
	ErrInvalidAmount               = newError(4, "InvalidAmount", classInvalid)
	ErrInsufficientPoints          = newError(6, "InsufficientPoints", classConflict)
	ErrInsufficientEarnedPoints    = newError(14, "InsufficientEarnedPoints", classForbidden)
	ErrInsufficientAvailablePoints = newError(18, "InsufficientAvailablePoints", classConflict)
	ErrInsufficientDeposits        = newError(24, "InsufficientDeposits", classConflict)
	ErrInsufficientTreasury        = newError(25, "InsufficientTreasury", classConflict)
)

// Marketplace errors
var (
	ErrListingNotActive    = newError(15, "ListingNotActive", classConflict)
	ErrListingNotFound     = newError(16, "ListingNotFound", classNotFound)
	ErrOnlySellerCanCancel = newError(17, "OnlySellerCanCancel", classForbidden)
)

// Guild errors
var (
	ErrGuildIDExists  = newError(19, "GuildIdExists", classConflict)
	ErrGuildNotFound  = newError(20, "GuildNotFound", classNotFound)
	ErrAlreadyAMember = newError(21, "AlreadyAMember", classConflict)
	ErrNotAMember     = newError(22, "NotAMember", classForbidden)
	ErrHasDeposits    = newError(23, "HasDeposits", classConflict)
)

// Infrastructure-level rejections.
var (
	// ErrArithmeticOverflow is returned when a counter or pool would exceed uint64.
	ErrArithmeticOverflow = newError(100, "ArithmeticOverflow", classConflict)

	// ErrTransferFailed is returned when the native currency refuses a transfer.
	ErrTransferFailed = newError(101, "TransferFailed", classConflict)

	// ErrLogEntryNotFound is returned by queries for an unknown audit entry id.
	ErrLogEntryNotFound = newError(102, "LogEntryNotFound", classNotFound)

	// ErrReservedIdentity is returned when a command is issued by, or names,
	// an identity the ledger keeps for itself.
	ErrReservedIdentity = newError(103, "ReservedIdentity", classForbidden)
)

// AllErrors lists every command error in code order.
var AllErrors = []*Error{
	ErrUserAlreadyRegistered, ErrNotAdmin, ErrEventIDExists, ErrInvalidAmount,
	ErrEventNotOpen, ErrInsufficientPoints, ErrUserNotRegistered, ErrEventNotFound,
	ErrEventMustBeOpen, ErrEventMustBeResolved, ErrNoWinners, ErrNoStakeFound,
	ErrInsufficientEarnedPoints, ErrListingNotActive, ErrListingNotFound,
	ErrOnlySellerCanCancel, ErrInsufficientAvailablePoints, ErrGuildIDExists,
	ErrGuildNotFound, ErrAlreadyAMember, ErrNotAMember, ErrHasDeposits,
	ErrInsufficientDeposits, ErrInsufficientTreasury, ErrUsernameTaken,
	ErrArithmeticOverflow, ErrTransferFailed, ErrReservedIdentity,
}

// AsError extracts the command error from err, if any.
func AsError(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// CodeOf returns the numeric code of err, or 0 when err is not a command error.
func CodeOf(err error) int {
	if le, ok := AsError(err); ok {
		return le.Code
	}
	return 0
}

func isClass(err error, c class) bool {
	le, ok := AsError(err)
	return ok && le.class == c
}

// IsNotFound reports whether err refers to a missing account, event, listing,
// guild or stake.
func IsNotFound(err error) bool { return isClass(err, classNotFound) }

// IsConflict reports whether err is a state conflict or balance shortfall.
func IsConflict(err error) bool { return isClass(err, classConflict) }

// IsForbidden reports whether the caller lacks the right to perform the command.
func IsForbidden(err error) bool { return isClass(err, classForbidden) }

// IsInvalid reports whether err rejects an argument value.
func IsInvalid(err error) bool { return isClass(err, classInvalid) }
