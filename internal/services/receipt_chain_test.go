// internal/services/receipt_chain_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/imi-licensing/internal/licensing"
)

func buildChain(t *testing.T, n int) (*ReceiptChain, []Receipt) {
	t.Helper()
	chain := NewReceiptChain(0, "")
	var receipts []Receipt
	for i := 0; i < n; i++ {
		r, err := chain.Next(OpSetPlatformFee, licensing.CallContext{Caller: "owner", BlockHeight: uint64(i)}, map[string]interface{}{"fee": i})
		require.NoError(t, err)
		require.NoError(t, chain.Append(r))
		receipts = append(receipts, r)
	}
	return chain, receipts
}

func TestReceiptChainLinks(t *testing.T) {
	chain, receipts := buildChain(t, 3)

	assert.Equal(t, "", receipts[0].PrevHash)
	assert.Equal(t, receipts[0].Hash, receipts[1].PrevHash)
	assert.Equal(t, receipts[1].Hash, receipts[2].PrevHash)
	assert.Len(t, receipts[2].Hash, 64)

	seq, head := chain.Head()
	assert.Equal(t, uint64(3), seq)
	assert.Equal(t, receipts[2].Hash, head)
	assert.NoError(t, VerifyReceipts(0, "", receipts))
}

func TestNextDoesNotAdvance(t *testing.T) {
	chain := NewReceiptChain(0, "")
	cc := licensing.CallContext{Caller: "owner", BlockHeight: 1}

	a, err := chain.Next(OpSetPlatformFee, cc, map[string]interface{}{"fee": 1})
	require.NoError(t, err)
	b, err := chain.Next(OpSetPlatformFee, cc, map[string]interface{}{"fee": 1})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	seq, _ := chain.Head()
	assert.Equal(t, uint64(0), seq)
}

func TestAppendRejectsForeignReceipt(t *testing.T) {
	chain, receipts := buildChain(t, 2)

	assert.ErrorIs(t, chain.Append(receipts[0]), ErrReceiptOutOfOrder)

	next, err := chain.Next(OpSetPlatformFee, licensing.CallContext{Caller: "owner"}, nil)
	require.NoError(t, err)
	next.Caller = "mallory"
	assert.Error(t, chain.Append(next))
}

func TestVerifyReceiptsDetectsTampering(t *testing.T) {
	_, receipts := buildChain(t, 3)

	tampered := append([]Receipt(nil), receipts...)
	tampered[1].Payload = []byte(`{"fee":999}`)
	assert.Error(t, VerifyReceipts(0, "", tampered))

	assert.Error(t, VerifyReceipts(0, "", receipts[1:]))
	assert.NoError(t, VerifyReceipts(1, receipts[0].Hash, receipts[1:]))
}

func TestResumedChainMatchesOriginal(t *testing.T) {
	_, receipts := buildChain(t, 2)

	resumed := NewReceiptChain(receipts[1].Sequence, receipts[1].Hash)
	r, err := resumed.Next(OpSetPlatformFee, licensing.CallContext{Caller: "owner"}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.Sequence)
	assert.Equal(t, receipts[1].Hash, r.PrevHash)
}

func TestStoredReceiptsStillVerify(t *testing.T) {
	_, receipts := buildChain(t, 3)

	stored := make([]Receipt, 0, len(receipts))
	for _, r := range receipts {
		row := receiptModel(r)
		assert.Equal(t, string(r.Payload), row.Payload)
		stored = append(stored, receiptFromModel(row))
	}
	assert.NoError(t, VerifyReceipts(0, "", stored))

	head := receiptModel(receipts[2])
	assert.NoError(t, VerifyReceipts(head.Sequence-1, head.PrevHash, []Receipt{receiptFromModel(head)}))
	head.Payload = `{"fee":99}`
	assert.Error(t, VerifyReceipts(head.Sequence-1, head.PrevHash, []Receipt{receiptFromModel(head)}))

	// Payload bytes survive verbatim, including key order and spacing.
	r := receipts[0]
	r.Payload = []byte(`{"z": 1,  "a": 2}`)
	back := receiptFromModel(receiptModel(r))
	assert.Equal(t, string(r.Payload), string(back.Payload))
}
