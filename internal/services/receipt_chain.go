// internal/services/receipt_chain.go
package services

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/utils"
)

var ErrReceiptOutOfOrder = errors.New("receipt does not extend the chain head")

// Receipt records one committed state-changing operation. Each receipt
// commits to its predecessor through PrevHash.
type Receipt struct {
	Sequence    uint64              `json:"sequence"`
	Operation   string              `json:"operation"`
	Caller      licensing.Principal `json:"caller"`
	BlockHeight uint64              `json:"block_height"`
	Payload     json.RawMessage     `json:"payload"`
	PrevHash    string              `json:"prev_hash"`
	Hash        string              `json:"hash"`
}

type ReceiptChain struct {
	mu       sync.Mutex
	sequence uint64
	head     string
}

// NewReceiptChain resumes a chain whose last committed receipt had the given
// sequence and hash. Use 0 and "" for an empty chain.
func NewReceiptChain(sequence uint64, head string) *ReceiptChain {
	return &ReceiptChain{sequence: sequence, head: head}
}

func (c *ReceiptChain) Head() (uint64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sequence, c.head
}

// Next builds the receipt that would extend the chain. The chain itself
// only advances on Append.
func (c *ReceiptChain) Next(operation string, cc licensing.CallContext, payload interface{}) (Receipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to encode receipt payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r := Receipt{
		Sequence:    c.sequence + 1,
		Operation:   operation,
		Caller:      cc.Caller,
		BlockHeight: cc.BlockHeight,
		Payload:     body,
		PrevHash:    c.head,
	}
	r.Hash = hashReceipt(r)
	return r, nil
}

func (c *ReceiptChain) Append(r Receipt) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.Sequence != c.sequence+1 || r.PrevHash != c.head {
		return ErrReceiptOutOfOrder
	}
	if !utils.ValidateHash(r.Hash, receiptParts(r)...) {
		return fmt.Errorf("receipt %d: hash mismatch", r.Sequence)
	}
	c.sequence = r.Sequence
	c.head = r.Hash
	return nil
}

// VerifyReceipts checks that receipts form an unbroken chain starting after
// (sequence, head).
func VerifyReceipts(sequence uint64, head string, receipts []Receipt) error {
	for _, r := range receipts {
		if r.Sequence != sequence+1 {
			return fmt.Errorf("receipt %d: expected sequence %d", r.Sequence, sequence+1)
		}
		if r.PrevHash != head {
			return fmt.Errorf("receipt %d: broken link", r.Sequence)
		}
		if !utils.ValidateHash(r.Hash, receiptParts(r)...) {
			return fmt.Errorf("receipt %d: hash mismatch", r.Sequence)
		}
		sequence, head = r.Sequence, r.Hash
	}
	return nil
}

func hashReceipt(r Receipt) string {
	return utils.HashBlake2b(receiptParts(r)...)
}

// receiptParts is the hashed encoding of a receipt, excluding its own hash.
func receiptParts(r Receipt) [][]byte {
	var seq, height [8]byte
	binary.BigEndian.PutUint64(seq[:], r.Sequence)
	binary.BigEndian.PutUint64(height[:], r.BlockHeight)

	return [][]byte{
		[]byte(r.PrevHash),
		seq[:],
		lengthPrefixed(r.Operation),
		lengthPrefixed(string(r.Caller)),
		height[:],
		r.Payload,
	}
}

func lengthPrefixed(s string) []byte {
	out := make([]byte, 4+len(s))
	binary.BigEndian.PutUint32(out, uint32(len(s)))
	copy(out[4:], s)
	return out
}
