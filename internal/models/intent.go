// internal/models/intent.go
package models

import (
	"time"

	"github.com/javajoker/imi-licensing/internal/licensing"
)

// ValueIntent is an outbox row for a value-movement intent emitted by the
// contract. The custody worker settles pending rows.
type ValueIntent struct {
	BaseModel
	ReceiptSequence  uint64       `json:"receipt_sequence" gorm:"not null;uniqueIndex:idx_value_intents_order"`
	Position         int          `json:"position" gorm:"not null;uniqueIndex:idx_value_intents_order"`
	Kind             string       `json:"kind" gorm:"type:varchar(20);not null;index"`
	AgreementID      *uint64      `json:"agreement_id" gorm:"index"`
	Amount           uint64       `json:"amount" gorm:"not null"`
	FromPrincipal    string       `json:"from" gorm:"size:128;not null;index"`
	ToPrincipal      string       `json:"to,omitempty" gorm:"size:128"`
	Status           IntentStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Attempts         int          `json:"attempts" gorm:"default:0"`
	PaymentReference string       `json:"payment_reference,omitempty" gorm:"size:255"`
	FailureReason    string       `json:"failure_reason,omitempty" gorm:"type:text"`
	SettledAt        *time.Time   `json:"settled_at"`
}

func NewValueIntent(sequence uint64, position int, intent licensing.Intent) ValueIntent {
	row := ValueIntent{
		ReceiptSequence: sequence,
		Position:        position,
		Kind:            string(intent.Kind),
		Amount:          intent.Amount,
		FromPrincipal:   string(intent.From),
		ToPrincipal:     string(intent.To),
		Status:          IntentStatusPending,
	}
	if intent.Kind == licensing.IntentEscrowDeposit {
		agreementID := intent.AgreementID
		row.AgreementID = &agreementID
	}
	return row
}

func (v ValueIntent) Intent() licensing.Intent {
	intent := licensing.Intent{
		Kind:   licensing.IntentKind(v.Kind),
		Amount: v.Amount,
		From:   licensing.Principal(v.FromPrincipal),
		To:     licensing.Principal(v.ToPrincipal),
	}
	if v.AgreementID != nil {
		intent.AgreementID = *v.AgreementID
	}
	return intent
}
