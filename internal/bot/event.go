package bot

// Event is one inbound chat message, independent of the transport.
type Event struct {
	// Text is the raw message text.
	Text string

	SenderID   int64
	SenderName string

	// GroupID is the chat the message was sent in. For private chats it is
	// the chat with the sender.
	GroupID   int64
	GroupName string

	// Private is true for one-to-one chats with the bot.
	Private bool

	// IsReply is true when the message replies to another message.
	IsReply bool

	// RepliedToUserID is the author of the replied-to message, if known.
	RepliedToUserID *int64
	RepliedToName   string
}

// ResultKind classifies the outcome of handling an Event.
type ResultKind string

const (
	KindOrderAccepted     ResultKind = "order_accepted"
	KindAdjustmentApplied ResultKind = "adjustment_applied"
	KindCleared           ResultKind = "cleared"
	KindUnauthorized      ResultKind = "unauthorized"
	KindParseFailed       ResultKind = "parse_failed"
	KindInfoQuery         ResultKind = "info_query"
	KindAdminUpdated      ResultKind = "admin_updated"
	// KindThrottled results carry no text; the event is dropped.
	KindThrottled ResultKind = "throttled"
)

// Result is the response to an Event.
type Result struct {
	Kind ResultKind

	// Text is the rendered reply. Empty means nothing is sent.
	Text string

	// Data carries the structured outcome: ledger.Receipt for orders and
	// adjustments, ledger.ClearResult for clears, AdminChange for admin
	// updates.
	Data any
}

// AdminChange describes a processed /set_admin or /remove_admin.
type AdminChange struct {
	TargetID int64
	Global   bool
	GroupID  int64
	Granted  bool
	Changed  bool
}
