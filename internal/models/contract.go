// internal/models/contract.go
package models

import (
	"time"

	"github.com/javajoker/imi-licensing/internal/licensing"
)

// Rows mirroring licensing.State. The contract ids are the primary keys so
// that reloading keeps the id sequence intact.

type AgreementRecord struct {
	ID           uint64    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ContentID    uint64    `json:"content_id" gorm:"not null;index"`
	TemplateID   uint64    `json:"template_id" gorm:"not null;index"`
	Creator      string    `json:"creator" gorm:"size:128;not null;index"`
	Licensee     *string   `json:"licensee" gorm:"size:128;index"`
	RoyaltyRate  uint32    `json:"royalty_rate" gorm:"not null"`
	Duration     uint64    `json:"duration" gorm:"not null"`
	StartBlock   uint64    `json:"start_block" gorm:"not null"`
	Status       string    `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	Price        uint64    `json:"price" gorm:"not null"`
	MaxTransfers uint64    `json:"max_transfers" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AgreementRecord) TableName() string { return "agreements" }

func NewAgreementRecord(id uint64, a licensing.Agreement) AgreementRecord {
	rec := AgreementRecord{
		ID:           id,
		ContentID:    a.ContentID,
		TemplateID:   a.TemplateID,
		Creator:      string(a.Creator),
		RoyaltyRate:  a.RoyaltyRate,
		Duration:     a.Duration,
		StartBlock:   a.StartBlock,
		Status:       string(a.Status),
		Price:        a.Price,
		MaxTransfers: a.MaxTransfers,
	}
	if a.Licensee != nil {
		licensee := string(*a.Licensee)
		rec.Licensee = &licensee
	}
	return rec
}

func (r AgreementRecord) Agreement() licensing.Agreement {
	a := licensing.Agreement{
		ContentID:    r.ContentID,
		TemplateID:   r.TemplateID,
		Creator:      licensing.Principal(r.Creator),
		RoyaltyRate:  r.RoyaltyRate,
		Duration:     r.Duration,
		StartBlock:   r.StartBlock,
		Status:       licensing.AgreementStatus(r.Status),
		Price:        r.Price,
		MaxTransfers: r.MaxTransfers,
	}
	if r.Licensee != nil {
		licensee := licensing.Principal(*r.Licensee)
		a.Licensee = &licensee
	}
	return a
}

type LicenseRecord struct {
	ID            uint64    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	AgreementID   uint64    `json:"agreement_id" gorm:"not null;uniqueIndex"`
	Owner         string    `json:"owner" gorm:"size:128;not null;index"`
	IssuedAt      uint64    `json:"issued_at" gorm:"not null"`
	TransferCount uint64    `json:"transfer_count" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (LicenseRecord) TableName() string { return "licenses" }

func NewLicenseRecord(id uint64, l licensing.License) LicenseRecord {
	return LicenseRecord{
		ID:            id,
		AgreementID:   l.AgreementID,
		Owner:         string(l.Owner),
		IssuedAt:      l.IssuedAt,
		TransferCount: l.TransferCount,
	}
}

func (r LicenseRecord) License() licensing.License {
	return licensing.License{
		AgreementID:   r.AgreementID,
		Owner:         licensing.Principal(r.Owner),
		IssuedAt:      r.IssuedAt,
		TransferCount: r.TransferCount,
	}
}

type RoyaltyRecipientRecord struct {
	AgreementID uint64    `json:"agreement_id" gorm:"primaryKey;autoIncrement:false"`
	Recipient   string    `json:"recipient" gorm:"primaryKey;size:128"`
	Share       uint64    `json:"share" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (RoyaltyRecipientRecord) TableName() string { return "royalty_recipients" }

// ContractSettings is a single-row table holding the counters and the
// platform fee.
type ContractSettings struct {
	ID              uint      `json:"-" gorm:"primaryKey"`
	PlatformFee     uint64    `json:"platform_fee" gorm:"not null"`
	LastAgreementID uint64    `json:"last_agreement_id" gorm:"not null"`
	LastLicenseID   uint64    `json:"last_license_id" gorm:"not null"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const ContractSettingsID uint = 1

func (s ContractSettings) Settings() licensing.Settings {
	return licensing.Settings{
		PlatformFee:     s.PlatformFee,
		LastAgreementID: s.LastAgreementID,
		LastLicenseID:   s.LastLicenseID,
	}
}
