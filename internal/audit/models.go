package audit

import "time"

// Action categorizes what happened to the target entity.
type Action string

const (
	ActionAdded   Action = "ADDED"
	ActionUpdated Action = "UPDATED"
	ActionRemoved Action = "REMOVED"
)

// Actor identifies who performed a workflow, as resolved by the auth and
// device middleware. Services copy it onto every event they emit.
type Actor struct {
	ID        string
	LineID    string
	RequestID string
	Device    string
}

// Event is one recorded action tied to a workflow. It is emitted from domain
// logic and kept transport-agnostic so stores and sinks can fan out.
//
// Events are append-only: never updated or deleted by normal operation. The
// description may embed decrypted values for human readability; keeping
// secrets out of it is the emitting workflow's responsibility.
type Event struct {
	ID          string
	ActorID     string
	LineID      string
	Action      Action
	Entity      string
	Description string
	RequestID   string
	Device      string
	Timestamp   time.Time
}
