package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message types carried on the ledger events queue.
const (
	TypeMovementChanged = "movement_changed"
	TypeDebtOverdue     = "debt_overdue"
)

// LedgerMessage is the envelope for every message on the ledger events
// queue. It carries only identifiers; consumers fetch the current state
// from the database, so a stale message can never overwrite fresher data.
type LedgerMessage struct {
	Type       string    `json:"type"`
	OwnerID    uuid.UUID `json:"owner_id"`
	EnvelopeID uuid.UUID `json:"envelope_id,omitempty"`
	DebtID     uuid.UUID `json:"debt_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewMovementChangedMessage builds the message published when a movement
// linked to an envelope is created, edited or deleted.
func NewMovementChangedMessage(owner, envelopeID uuid.UUID) *LedgerMessage {
	return &LedgerMessage{
		Type:       TypeMovementChanged,
		OwnerID:    owner,
		EnvelopeID: envelopeID,
		Timestamp:  time.Now(),
	}
}

// NewDebtOverdueMessage builds the message published when a debt flips to
// overdue.
func NewDebtOverdueMessage(owner, debtID uuid.UUID) *LedgerMessage {
	return &LedgerMessage{
		Type:      TypeDebtOverdue,
		OwnerID:   owner,
		DebtID:    debtID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerMessageFromJSON creates a message from JSON bytes
func LedgerMessageFromJSON(data []byte) (*LedgerMessage, error) {
	var msg LedgerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
