package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeDebit  EventType = "debit"
	EventTypeCredit EventType = "credit"
)

type EventReason string

const (
	ReasonConsultation EventReason = "consultation"
	ReasonRefund       EventReason = "refund"
	ReasonTopUp        EventReason = "top_up"
	ReasonOpening      EventReason = "opening_balance"
)

// BalanceEvent is the append-only audit record written alongside every
// balance mutation. OperationID ties a debit to its compensating credit.
type BalanceEvent struct {
	ID            uuid.UUID
	OperationID   uuid.UUID
	UserID        string
	EventType     EventType
	Reason        EventReason
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// BalanceMutation is a single conditional write: it succeeds only if the
// stored balance still equals Expected.
type BalanceMutation struct {
	UserID   string
	Expected int64
	New      int64
	Event    *BalanceEvent

	// ConsumeOrderID, when set, marks that payment order as paid in the
	// same write. The write fails with ErrOrderConsumed if it already was.
	ConsumeOrderID string
	PaymentID      string
}
