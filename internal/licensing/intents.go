// internal/licensing/intents.go
package licensing

type IntentKind string

const (
	IntentEscrowDeposit IntentKind = "escrow_deposit"
	IntentFeeTransfer   IntentKind = "fee_transfer"
)

// Intent is a request for value movement. The engine records intents; a
// custody collaborator executes them.
//
// Escrow deposits use AgreementID, From (the licensee) and Amount. Fee
// transfers use Amount, From and To.
type Intent struct {
	Kind        IntentKind `json:"kind"`
	AgreementID uint64     `json:"agreement_id,omitempty"`
	Amount      uint64     `json:"amount"`
	From        Principal  `json:"from"`
	To          Principal  `json:"to,omitempty"`
}

func NewEscrowDeposit(agreementID uint64, licensee Principal, amount uint64) Intent {
	return Intent{
		Kind:        IntentEscrowDeposit,
		AgreementID: agreementID,
		Amount:      amount,
		From:        licensee,
	}
}

func NewFeeTransfer(amount uint64, from, to Principal) Intent {
	return Intent{
		Kind:   IntentFeeTransfer,
		Amount: amount,
		From:   from,
		To:     to,
	}
}

// IntentSink receives intents in emission order.
type IntentSink interface {
	Record(intent Intent)
}

type discardSink struct{}

func (discardSink) Record(Intent) {}

// IntentLog is an in-memory, ordered IntentSink.
type IntentLog struct {
	intents []Intent
}

func NewIntentLog() *IntentLog {
	return &IntentLog{}
}

func (l *IntentLog) Record(intent Intent) {
	l.intents = append(l.intents, intent)
}

// Intents returns a copy of everything recorded so far.
func (l *IntentLog) Intents() []Intent {
	out := make([]Intent, len(l.intents))
	copy(out, l.intents)
	return out
}

// Drain returns the recorded intents and empties the log.
func (l *IntentLog) Drain() []Intent {
	out := l.intents
	l.intents = nil
	return out
}

func (l *IntentLog) Len() int {
	return len(l.intents)
}
