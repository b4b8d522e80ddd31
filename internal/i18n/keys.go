// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired      = "auth.required"
	KeyAuthInvalidToken  = "auth.invalid_token"
	KeyAuthTokenExpired  = "auth.token_expired"
	KeyAdminAccessDenied = "admin.access_denied"

	// Validation
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationRequired = "validation.required"

	// Contract rejections
	KeyContractUnauthorized       = "contract.unauthorized"
	KeyContractInvalidTerms       = "contract.invalid_terms"
	KeyContractNotAuthorizedIssue = "contract.not_authorized_or_already_issued"
	KeyContractTransferNotAllowed = "contract.transfer_not_allowed"
	KeyContractNotFound           = "contract.not_found"
	KeyContractExpired            = "contract.expired"

	// Resources
	KeyAgreementNotFound = "agreement.not_found"
	KeyLicenseNotFound   = "license.not_found"
	KeyRoyaltyNotFound   = "royalty.not_found"

	// Admin
	KeySnapshotArchived   = "admin.snapshot_archived"
	KeyOutboxUnavailable  = "admin.outbox_unavailable"
	KeyArchiveUnavailable = "admin.archive_unavailable"

	// System
	KeyRateLimitExceeded = "system.rate_limit_exceeded"
	KeyInternalError     = "system.internal_error"
	KeyStateUnavailable  = "system.state_unavailable"
)
