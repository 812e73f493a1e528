package events

import (
	"github.com/dshills/keymarks/internal/event/topic"
	"github.com/dshills/keymarks/internal/host"
)

// Marks event topics.
const (
	// TopicNavigate is published after a mark's buffer became the active view.
	TopicNavigate topic.Topic = "marks.navigate"

	// TopicPositionUpdated is published when a lifecycle hook moved a mark's context.
	TopicPositionUpdated topic.Topic = "marks.position.updated"

	// TopicListChanged is published when items are added to or removed from a list.
	TopicListChanged topic.Topic = "marks.list.changed"
)

// Host event topics.
const (
	// TopicBufferLeave is published by the host when the current buffer is left.
	TopicBufferLeave topic.Topic = "host.buffer.leave"
)

// Navigate is the payload of TopicNavigate.
type Navigate struct {
	// Buffer is the handle that became current.
	Buffer host.BufferID
}

// PositionUpdated is the payload of TopicPositionUpdated.
type PositionUpdated struct {
	// List is the name of the list owning the mark.
	List string

	// Value is the mark's value.
	Value string

	// Row and Col are the new position.
	Row int
	Col int
}

// ListChangeKind tells what happened to a list.
type ListChangeKind string

// List change kinds.
const (
	ListItemAdded    ListChangeKind = "added"
	ListItemRemoved  ListChangeKind = "removed"
	ListItemReplaced ListChangeKind = "replaced"
	ListCleared      ListChangeKind = "cleared"
	ListDeleted      ListChangeKind = "deleted"
)

// ListChanged is the payload of TopicListChanged.
type ListChanged struct {
	List  string
	Kind  ListChangeKind
	Value string
	Index int
}

// BufferLeave is the payload of TopicBufferLeave.
type BufferLeave struct {
	// Buffer is the handle being left.
	Buffer host.BufferID

	// Name is the buffer's name as known to the host.
	Name string
}

// Lifecycle event names as used in list configuration autocmds.
const (
	EventBufLeave = "BufLeave"
)

// LifecycleTopics maps lifecycle event names onto host topics.
var LifecycleTopics = map[string]topic.Topic{
	EventBufLeave: TopicBufferLeave,
}
