package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

type EventType int

const (
	EventWrite EventType = iota
	EventCreate
	EventRemove
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventWrite:
		return "write"
	case EventCreate:
		return "create"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// classify maps an fsnotify op onto an EventType. Chmod-only events are
// ignored since they never change the file's content.
func classify(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Write):
		return EventWrite, true
	case op.Has(fsnotify.Remove):
		return EventRemove, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	default:
		return 0, false
	}
}
