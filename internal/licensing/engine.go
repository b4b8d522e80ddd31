// internal/licensing/engine.go
package licensing

// Registry answers the validity questions the engine cannot answer from its
// own state. Implementations must be synchronous and side-effect free.
type Registry interface {
	IsContentValid(contentID uint64) bool
	IsTemplateValid(templateID uint64) bool
	IsCreatorRegistered(p Principal) bool
}

// Engine applies licensing operations to a State. Every operation validates
// all of its preconditions before touching the state, so a rejected call
// leaves the state exactly as it was.
//
// The engine does not lock. Callers serialize operations.
type Engine struct {
	state    *State
	registry Registry
	sink     IntentSink
	owner    Principal
}

type Option func(*Engine)

// WithOwner sets the privileged identity that may change the platform fee
// and that receives fee transfers.
func WithOwner(owner Principal) Option {
	return func(e *Engine) {
		if owner != "" {
			e.owner = owner
		}
	}
}

func WithIntentSink(sink IntentSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

func NewEngine(state *State, registry Registry, opts ...Option) *Engine {
	if state == nil {
		state = NewState(DefaultPlatformFee)
	}
	e := &Engine{
		state:    state,
		registry: registry,
		sink:     discardSink{},
		owner:    DefaultOwner,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) State() *State {
	return e.state
}

func (e *Engine) Owner() Principal {
	return e.owner
}

// CreateAgreement registers a new agreement owned by the caller and returns
// its id.
func (e *Engine) CreateAgreement(cc CallContext, terms Terms) (uint64, error) {
	if e.registry == nil || !e.registry.IsContentValid(terms.ContentID) {
		return 0, reject(ErrUnauthorized, ErrContentInvalid)
	}
	if !e.registry.IsTemplateValid(terms.TemplateID) {
		return 0, reject(ErrUnauthorized, ErrTemplateInvalid)
	}
	if !e.registry.IsCreatorRegistered(cc.Caller) {
		return 0, reject(ErrUnauthorized, ErrCreatorNotRegistered)
	}
	if terms.Price == 0 {
		return 0, reject(ErrInvalidTerms, ErrPriceNotPositive)
	}
	if terms.RoyaltyRate > MaxRoyaltyRate {
		return 0, reject(ErrInvalidTerms, ErrRoyaltyRateTooHigh)
	}

	id := e.state.nextAgreementID()
	e.state.agreements[id] = Agreement{
		ContentID:    terms.ContentID,
		TemplateID:   terms.TemplateID,
		Creator:      cc.Caller,
		RoyaltyRate:  terms.RoyaltyRate,
		Duration:     terms.Duration,
		StartBlock:   cc.BlockHeight,
		Status:       StatusActive,
		Price:        terms.Price,
		MaxTransfers: terms.MaxTransfers,
	}
	e.state.settings.LastAgreementID = id
	return id, nil
}

// IssueLicense grants the agreement's single license to licensee. It records
// the escrow deposit for the price and then the platform fee transfer.
func (e *Engine) IssueLicense(cc CallContext, agreementID uint64, licensee Principal) (uint64, error) {
	agreement, ok := e.state.agreements[agreementID]
	switch {
	case !ok:
		return 0, reject(ErrNotAuthorizedOrAlreadyIssued, ErrAgreementNotFound)
	case agreement.Creator != cc.Caller:
		return 0, reject(ErrNotAuthorizedOrAlreadyIssued, ErrNotCreator)
	case !agreement.IsActive():
		return 0, reject(ErrNotAuthorizedOrAlreadyIssued, ErrAgreementInactive)
	case agreement.HasLicensee():
		return 0, reject(ErrNotAuthorizedOrAlreadyIssued, ErrAlreadyIssued)
	case licensee == cc.Caller:
		return 0, reject(ErrNotAuthorizedOrAlreadyIssued, ErrSelfLicense)
	}

	holder := licensee
	agreement.Licensee = &holder
	e.state.agreements[agreementID] = agreement

	id := e.state.nextLicenseID()
	e.state.licenses[id] = License{
		AgreementID: agreementID,
		Owner:       licensee,
		IssuedAt:    cc.BlockHeight,
	}
	e.state.settings.LastLicenseID = id

	e.sink.Record(NewEscrowDeposit(agreementID, licensee, agreement.Price))
	e.sink.Record(NewFeeTransfer(e.state.settings.PlatformFee, licensee, e.owner))
	return id, nil
}

// TransferLicense moves a license to newOwner. Every rejection is reported as
// ErrTransferNotAllowed; the wrapped reason says which precondition failed.
func (e *Engine) TransferLicense(cc CallContext, licenseID uint64, newOwner Principal) error {
	license, ok := e.state.licenses[licenseID]
	if !ok {
		return reject(ErrTransferNotAllowed, ErrLicenseNotFound)
	}
	agreement, ok := e.state.agreements[license.AgreementID]
	switch {
	case !ok:
		return reject(ErrTransferNotAllowed, ErrAgreementNotFound)
	case license.Owner != cc.Caller:
		return reject(ErrTransferNotAllowed, ErrNotLicenseOwner)
	case !agreement.IsActive():
		return reject(ErrTransferNotAllowed, ErrAgreementInactive)
	case license.TransferCount >= agreement.MaxTransfers:
		return reject(ErrTransferNotAllowed, ErrTransferLimitReached)
	case !agreement.ValidAt(cc.BlockHeight):
		return reject(ErrTransferNotAllowed, ErrTransferWindowClosed)
	}

	license.Owner = newOwner
	license.TransferCount++
	e.state.licenses[licenseID] = license
	return nil
}

// SetRoyaltyRecipient inserts or overwrites the share of recipient. Shares
// are not required to sum to any total.
func (e *Engine) SetRoyaltyRecipient(cc CallContext, agreementID uint64, recipient Principal, share uint64) error {
	agreement, ok := e.state.agreements[agreementID]
	switch {
	case !ok:
		return reject(ErrNotFound, ErrAgreementNotFound)
	case agreement.Creator != cc.Caller:
		return reject(ErrUnauthorized, ErrNotCreator)
	case share == 0:
		return reject(ErrInvalidTerms, ErrShareNotPositive)
	}

	e.state.royalties[RoyaltyKey{AgreementID: agreementID, Recipient: recipient}] = RoyaltyRecipient{Share: share}
	return nil
}

func (e *Engine) SetPlatformFee(cc CallContext, fee uint64) error {
	if cc.Caller != e.owner {
		return reject(ErrUnauthorized, ErrNotContractOwner)
	}
	e.state.settings.PlatformFee = fee
	return nil
}
