package busproto

import "encoding/json"

// Payload is the closed tagged union over every in-process message body.
// Adding a new shape of message means adding a new variant here and a new
// isPayload method; existing variants are never overloaded to carry
// unrelated data.
type Payload interface {
	isPayload()
}

type (
	// Empty carries no data. Used for requests/replies that only need an
	// acknowledgement (e.g. cron/cancel success).
	Empty struct{}

	// Text carries free-form text, used by trivial handlers (e.g. echo).
	Text struct {
		Value string
	}

	// CommsMessage carries a channel-originated message into the agents
	// handler and back out as a reply.
	CommsMessage struct {
		ChannelID string
		Content   string
		SessionID *string
	}

	// LLMRequest carries a completion request to the llm handler.
	LLMRequest struct {
		Provider string
		Model    string
		Messages []json.RawMessage
		AgentID  string
	}

	// LLMResponse carries a completion result back from the llm handler.
	LLMResponse struct {
		Content string
		Usage   *Usage
	}

	// Usage mirrors the per-turn token accounting the memory subsystem's
	// spend accumulator consumes.
	Usage struct {
		InputTokens       int64
		OutputTokens      int64
		CachedInputTokens int64
	}

	// SessionQuery carries a read-only query against the memory subsystem's
	// session query surface.
	SessionQuery struct {
		SessionID string
	}

	// JSONResponse wraps an arbitrary JSON-serializable reply, used by the
	// management and session-query surfaces.
	JSONResponse struct {
		Data json.RawMessage
	}

	// ToolRequest carries a tool invocation.
	ToolRequest struct {
		Name string
		Args json.RawMessage
	}

	// ToolResponse carries a tool invocation result.
	ToolResponse struct {
		Result json.RawMessage
		Err    string
	}

	// CronSchedule is the request payload for cron/schedule.
	CronSchedule struct {
		TargetMethod string
		PayloadJSON  json.RawMessage
		Spec         CronSpec
	}

	// CronSpec is either a Once or an Interval schedule. Exactly one of At
	// or EverySecs is meaningful, selected by Kind.
	CronSpec struct {
		Kind      CronSpecKind
		AtUnixMs  int64
		EverySecs int64
	}

	// CronSpecKind discriminates CronSpec's two shapes.
	CronSpecKind int

	// CronScheduleResult is the reply payload for cron/schedule.
	CronScheduleResult struct {
		ScheduleID string
	}

	// CronCancel is the request payload for cron/cancel.
	CronCancel struct {
		ScheduleID string
	}

	// CronList is the (empty) request payload for cron/list.
	CronList struct{}

	// CronListResult is the reply payload for cron/list.
	CronListResult struct {
		Entries []CronEntryInfo
	}

	// CronEntryInfo describes one live cron entry.
	CronEntryInfo struct {
		ID              string
		Method          string
		Spec            CronSpec
		NextFireUnixMs  int64
	}

	// CancelRequest asks a long-running handler to abort in-flight work
	// identified by an opaque token.
	CancelRequest struct {
		Token string
	}
)

const (
	// CronOnce fires exactly once at AtUnixMs.
	CronOnce CronSpecKind = iota
	// CronInterval fires every EverySecs seconds, starting one interval
	// from registration time.
	CronInterval
)

func (Empty) isPayload()              {}
func (Text) isPayload()               {}
func (CommsMessage) isPayload()       {}
func (LLMRequest) isPayload()         {}
func (LLMResponse) isPayload()        {}
func (SessionQuery) isPayload()       {}
func (JSONResponse) isPayload()       {}
func (ToolRequest) isPayload()        {}
func (ToolResponse) isPayload()       {}
func (CronSchedule) isPayload()       {}
func (CronScheduleResult) isPayload() {}
func (CronCancel) isPayload()         {}
func (CronList) isPayload()           {}
func (CronListResult) isPayload()     {}
func (CancelRequest) isPayload()      {}
