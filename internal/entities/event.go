package entities

// EventKind classifies an inbound webhook event after platform parsing.
type EventKind string

const (
	KindText        EventKind = "text"
	KindImage       EventKind = "image"
	KindUnsupported EventKind = "unsupported"
)

// InboundEvent is one platform event reduced to the fields the dispatcher
// needs. The reply token is single-use: every event admits exactly one
// reply attempt.
type InboundEvent struct {
	Kind       EventKind
	ReplyToken string
	UserID     string
	MessageID  string
	Text       string
}

// MessageRecord is one row of the durable message log. Write-once: no
// update or delete path exists.
type MessageRecord struct {
	UserID       string
	MessageID    string
	Kind         string
	Content      string
	ReplyToken   string
	ReplyContent string
}

// OutcomeStatus is the terminal state of one dispatched event.
type OutcomeStatus string

const (
	StatusReplied OutcomeStatus = "replied"
	StatusSkipped OutcomeStatus = "skipped"
	StatusFailed  OutcomeStatus = "failed"
)

// Outcome is the result of handling one InboundEvent. One outcome per
// event; a failed outcome never aborts sibling dispatches.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}
