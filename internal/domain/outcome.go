package domain

import "github.com/google/uuid"

type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeRefunded  OutcomeKind = "refunded"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the result of a metered call once coins have been debited.
// Balance is the account balance after any compensation. OperationID is
// shared by the debit and refund events of the call.
type Outcome struct {
	Kind        OutcomeKind
	Result      string
	Reason      error
	Balance     int64
	OperationID uuid.UUID
}
