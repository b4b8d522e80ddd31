// internal/models/receipt.go
package models

import "time"

type OperationReceipt struct {
	Sequence    uint64    `json:"sequence" gorm:"primaryKey;autoIncrement:false"`
	Operation   string    `json:"operation" gorm:"size:50;not null;index"`
	Caller      string    `json:"caller" gorm:"size:128;not null;index"`
	BlockHeight uint64    `json:"block_height" gorm:"not null;index"`
	// Payload keeps the exact bytes that were hashed; jsonb would normalize them.
	Payload     string    `json:"payload" gorm:"type:text;not null"`
	PrevHash    string    `json:"prev_hash" gorm:"size:64"`
	Hash        string    `json:"hash" gorm:"size:64;not null;uniqueIndex"`
	CreatedAt   time.Time `json:"created_at"`
}
