package agent

// EventKind identifies what a streamed AgentEvent carries
type EventKind int

const (
	EventText EventKind = iota
	EventToolStart
	EventToolDone
	EventDone
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventToolStart:
		return "tool_start"
	case EventToolDone:
		return "tool_done"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	}
	return "unknown"
}

// AgentEvent is one step of a streamed chat turn
type AgentEvent struct {
	Kind     EventKind
	Text     string
	ToolName string
	Params   map[string]any
	Err      error
}
