package request

import (
	"time"

	"github.com/google/uuid"
)

// TransitionedEvent is published after a status transition is persisted.
type TransitionedEvent struct {
	Request  *ConnectionRequest
	Previous Status
	Target   Status
	ActorID  uuid.UUID
	At       time.Time
}

// StageMovedEvent is published after a request moves between pipeline stages.
type StageMovedEvent struct {
	Request   *ConnectionRequest
	FromStage *uuid.UUID
	ToStage   *uuid.UUID
	At        time.Time
}

// CreatedEvent is published when a buyer submission lands a new request.
type CreatedEvent struct {
	Request *ConnectionRequest
}
