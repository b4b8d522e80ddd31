// internal/licensing/queries.go
package licensing

// VerifyLicense reports the current owner of a license together with its
// agreement, provided the agreement is still active and inside its window.
func (e *Engine) VerifyLicense(cc CallContext, licenseID uint64) (Verification, error) {
	license, ok := e.state.licenses[licenseID]
	if !ok {
		return Verification{}, reject(ErrNotFound, ErrLicenseNotFound)
	}
	agreement, ok := e.state.agreements[license.AgreementID]
	switch {
	case !ok:
		return Verification{}, reject(ErrExpired, ErrAgreementNotFound)
	case !agreement.IsActive():
		return Verification{}, reject(ErrExpired, ErrAgreementInactive)
	case !agreement.ValidAt(cc.BlockHeight):
		return Verification{}, reject(ErrExpired, ErrAgreementWindowClosed)
	}
	return Verification{Owner: license.Owner, Agreement: agreement.clone()}, nil
}

func (e *Engine) AgreementDetails(agreementID uint64) (Agreement, bool) {
	return e.state.Agreement(agreementID)
}

func (e *Engine) LicenseDetails(licenseID uint64) (License, bool) {
	return e.state.License(licenseID)
}

func (e *Engine) RoyaltyRecipient(agreementID uint64, recipient Principal) (RoyaltyRecipient, bool) {
	return e.state.RoyaltyRecipient(agreementID, recipient)
}
