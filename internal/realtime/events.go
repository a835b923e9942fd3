package realtime

// ChangeKind classifies a record store mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent is broadcast after every successful store write. Origin carries
// the writing instance's id so forwarded events are not dispatched twice.
type ChangeEvent struct {
	Collection string     `json:"collection"`
	RecordID   string     `json:"record_id"`
	Kind       ChangeKind `json:"kind"`
	Seq        int64      `json:"seq"`
	Origin     string     `json:"origin"`
}

type SSEEvent string

const (
	SSEEventConversationCreated   SSEEvent = "ConversationCreated"
	SSEEventConversationClosed    SSEEvent = "ConversationClosed"
	SSEEventMessageCreated        SSEEvent = "MessageCreated"
	SSEEventMessagesSnapshot      SSEEvent = "MessagesSnapshot"
	SSEEventConversationsSnapshot SSEEvent = "ConversationsSnapshot"
	SSEEventConversationUpdated   SSEEvent = "ConversationUpdated"
	SSEEventThreadRead            SSEEvent = "ThreadRead"
)

// SSEMessage is the unit pushed to browser event streams.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// Well-known SSE channel names.
func UserChannel(userID string) string         { return "user:" + userID }
func ConversationChannel(convID string) string { return "conversation:" + convID }

const AdminChannel = "admin:inbox"
