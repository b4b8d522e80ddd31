// internal/licensing/types.go
package licensing

import "math"

// Principal is an already-authenticated caller identity.
type Principal string

type AgreementStatus string

const (
	StatusActive AgreementStatus = "active"
)

const (
	// MaxRoyaltyRate is 100% expressed in basis points.
	MaxRoyaltyRate uint32 = 10000

	DefaultOwner       Principal = "contract"
	DefaultPlatformFee uint64    = 100
)

// CallContext carries the identity of the caller and the block height the
// operation executes at. It is supplied by the execution environment.
type CallContext struct {
	Caller      Principal `json:"caller"`
	BlockHeight uint64    `json:"block_height"`
}

// Terms are the caller-supplied inputs of a new agreement.
type Terms struct {
	ContentID    uint64 `json:"content_id"`
	TemplateID   uint64 `json:"template_id"`
	RoyaltyRate  uint32 `json:"royalty_rate"`
	Duration     uint64 `json:"duration"`
	Price        uint64 `json:"price"`
	MaxTransfers uint64 `json:"max_transfers"`
}

type Agreement struct {
	ContentID    uint64          `json:"content_id"`
	TemplateID   uint64          `json:"template_id"`
	Creator      Principal       `json:"creator"`
	Licensee     *Principal      `json:"licensee"`
	RoyaltyRate  uint32          `json:"royalty_rate"`
	Duration     uint64          `json:"duration"`
	StartBlock   uint64          `json:"start_block"`
	Status       AgreementStatus `json:"status"`
	Price        uint64          `json:"price"`
	MaxTransfers uint64          `json:"max_transfers"`
}

// clone returns a copy that shares no memory with a.
func (a Agreement) clone() Agreement {
	if a.Licensee != nil {
		licensee := *a.Licensee
		a.Licensee = &licensee
	}
	return a
}

// EndBlock is the last block height at which the agreement is still valid.
func (a Agreement) EndBlock() uint64 {
	if a.Duration > math.MaxUint64-a.StartBlock {
		return math.MaxUint64
	}
	return a.StartBlock + a.Duration
}

// ValidAt reports whether height falls inside the agreement's window.
func (a Agreement) ValidAt(height uint64) bool {
	return height <= a.EndBlock()
}

func (a Agreement) IsActive() bool {
	return a.Status == StatusActive
}

func (a Agreement) HasLicensee() bool {
	return a.Licensee != nil
}

type License struct {
	AgreementID   uint64    `json:"agreement_id"`
	Owner         Principal `json:"owner"`
	IssuedAt      uint64    `json:"issued_at"`
	TransferCount uint64    `json:"transfer_count"`
}

type RoyaltyRecipient struct {
	Share uint64 `json:"share"`
}

// RoyaltyKey identifies a royalty recipient within an agreement.
type RoyaltyKey struct {
	AgreementID uint64
	Recipient   Principal
}

// Verification is the result of a successful license verification.
type Verification struct {
	Owner     Principal `json:"owner"`
	Agreement Agreement `json:"agreement"`
}

// Settings holds the contract-wide scalars.
type Settings struct {
	PlatformFee     uint64 `json:"platform_fee"`
	LastAgreementID uint64 `json:"last_agreement_id"`
	LastLicenseID   uint64 `json:"last_license_id"`
}
