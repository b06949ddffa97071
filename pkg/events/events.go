// Package events defines the host events delivered to the scripting panel.
package events

import (
	"time"

	"github.com/dukex/scriptpanel/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries all host events.
const Topic = "scriptpanel.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionFinishedEvent EventType = "python-execution-finished"
	ConsoleOutputEvent     EventType = "console-output"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
}

func newBaseEvent(eventType EventType, nodeID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
	}
}

// ExecutionFinished is published by the host when a run ends.
type ExecutionFinished struct {
	BaseEvent

	Info models.ExecutionInfo `json:"info"`
}

func NewExecutionFinished(nodeID string, info models.ExecutionInfo) ExecutionFinished {
	return ExecutionFinished{BaseEvent: newBaseEvent(ExecutionFinishedEvent, nodeID), Info: info}
}

func (e ExecutionFinished) GetType() EventType {
	return ExecutionFinishedEvent
}

// ConsoleOutput is a chunk of interpreter output.
type ConsoleOutput struct {
	BaseEvent

	Text   string `json:"text"`
	Stderr bool   `json:"stderr"`
}

func NewConsoleOutput(nodeID, text string, stderr bool) ConsoleOutput {
	return ConsoleOutput{BaseEvent: newBaseEvent(ConsoleOutputEvent, nodeID), Text: text, Stderr: stderr}
}

func (e ConsoleOutput) GetType() EventType {
	return ConsoleOutputEvent
}
