// Package common provides shared types and constants used across the
// tubequeue client-server communication layer.
package common

// EventType identifies a push event delivered over the event channel.
// Push events double as JSON-RPC notification method names.
type EventType string

const (
	// EventConfiguration carries the full server configuration object.
	EventConfiguration EventType = "configuration"
	// EventAll carries a full snapshot of queue and done state. Sent on
	// connect and after every reconnect so the client never replays events.
	EventAll EventType = "all"
	// EventAdded announces a download newly accepted into the queue.
	EventAdded EventType = "added"
	// EventUpdated carries a full or partial record for an existing download.
	EventUpdated EventType = "updated"
	// EventCompleted announces a download reaching a terminal status.
	EventCompleted EventType = "completed"
	// EventCanceled carries ids removed from the queue.
	EventCanceled EventType = "canceled"
	// EventCleared carries ids removed from the done set.
	EventCleared EventType = "cleared"
	// EventDeleted carries ids removed from wherever they currently live.
	EventDeleted EventType = "deleted"
)

// RPC method names for client-issued commands.
const (
	MethodAdd    = "queue.add"
	MethodStart  = "queue.start"
	MethodDelete = "queue.delete"
)

// Status is the lifecycle state of a download.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
	StatusError       Status = "error"
	StatusCanceled    Status = "canceled"
)

// Terminal reports whether a download in this status will never change again.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusError, StatusCanceled:
		return true
	}
	return false
}

// Target collections for delete commands.
const (
	WhereQueue = "queue"
	WhereDone  = "done"
)
