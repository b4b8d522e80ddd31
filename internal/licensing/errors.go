// internal/licensing/errors.go
package licensing

import (
	"errors"
	"fmt"
)

// Code is the numeric contract error code surfaced to callers.
type Code uint32

const (
	CodeNone                         Code = 0
	CodeNotAuthorizedOrAlreadyIssued Code = 100
	CodeUnauthorized                 Code = 101
	CodeExpired                      Code = 105
	CodeInvalidTerms                 Code = 106
	CodeNotFound                     Code = 109
)

type Kind string

const (
	KindUnauthorized                 Kind = "unauthorized"
	KindInvalidTerms                 Kind = "invalid_terms"
	KindNotAuthorizedOrAlreadyIssued Kind = "not_authorized_or_already_issued"
	KindTransferNotAllowed           Kind = "transfer_not_allowed"
	KindNotFound                     Kind = "not_found"
	KindExpired                      Kind = "expired"
)

// Error is a rejected operation. Kind and Code are what callers see; Reason
// keeps the precondition that actually failed.
type Error struct {
	Kind   Kind
	Code   Code
	Reason error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Code != CodeNone {
		msg = fmt.Sprintf("%s (code %d)", e.Kind, e.Code)
	}
	if e.Reason != nil {
		return msg + ": " + e.Reason.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Reason
}

// Is matches on Kind so errors.Is(err, ErrExpired) works regardless of reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrUnauthorized                 = &Error{Kind: KindUnauthorized, Code: CodeUnauthorized}
	ErrInvalidTerms                 = &Error{Kind: KindInvalidTerms, Code: CodeInvalidTerms}
	ErrNotAuthorizedOrAlreadyIssued = &Error{Kind: KindNotAuthorizedOrAlreadyIssued, Code: CodeNotAuthorizedOrAlreadyIssued}
	ErrTransferNotAllowed           = &Error{Kind: KindTransferNotAllowed, Code: CodeNone}
	ErrNotFound                     = &Error{Kind: KindNotFound, Code: CodeNotFound}
	ErrExpired                      = &Error{Kind: KindExpired, Code: CodeExpired}
)

// Precondition failures.
var (
	ErrContentInvalid        = errors.New("content is not valid")
	ErrTemplateInvalid       = errors.New("template is not valid")
	ErrCreatorNotRegistered  = errors.New("caller is not a registered creator")
	ErrPriceNotPositive      = errors.New("price must be greater than zero")
	ErrRoyaltyRateTooHigh    = errors.New("royalty rate exceeds 10000 basis points")
	ErrAgreementNotFound     = errors.New("agreement not found")
	ErrLicenseNotFound       = errors.New("license not found")
	ErrNotCreator            = errors.New("caller is not the agreement creator")
	ErrAgreementInactive     = errors.New("agreement is not active")
	ErrAlreadyIssued         = errors.New("license already issued for agreement")
	ErrSelfLicense           = errors.New("creator cannot license to itself")
	ErrNotLicenseOwner       = errors.New("caller does not own the license")
	ErrTransferLimitReached  = errors.New("transfer limit reached")
	ErrTransferWindowClosed  = errors.New("agreement validity window closed")
	ErrShareNotPositive      = errors.New("royalty share must be greater than zero")
	ErrNotContractOwner      = errors.New("caller is not the contract owner")
	ErrAgreementWindowClosed = errors.New("agreement expired")
)

func reject(base *Error, reason error) error {
	return &Error{Kind: base.Kind, Code: base.Code, Reason: reason}
}

// CodeOf extracts the contract code of err, if it is a contract error.
func CodeOf(err error) (Code, bool) {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code, true
	}
	return CodeNone, false
}

// KindOf extracts the contract error kind of err.
func KindOf(err error) (Kind, bool) {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind, true
	}
	return "", false
}
