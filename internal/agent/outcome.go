package agent

// OutcomeKind classifies what happened to one input line.
type OutcomeKind int

const (
	// OutcomeSkipped means the line was blank or had no bracketed hex list.
	OutcomeSkipped OutcomeKind = iota

	// OutcomeParseError means the line had a candidate list with a bad token.
	OutcomeParseError

	// OutcomeSent means the payload went out on the wire.
	OutcomeSent

	// OutcomeSendError means both the initial write and the resend failed.
	OutcomeSendError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeParseError:
		return "parse_error"
	case OutcomeSent:
		return "sent"
	case OutcomeSendError:
		return "send_error"
	default:
		return "unknown"
	}
}

// Outcome is the per-line result reported to logs and the OnOutcome hook.
type Outcome struct {
	// Line is the 1-based input line number.
	Line int

	Kind OutcomeKind

	// Bytes is the payload size for OutcomeSent.
	Bytes int

	// Err carries the cause for the error kinds.
	Err error
}

// Summary tallies a whole run.
type Summary struct {
	Lines       int
	Sent        int
	Skipped     int
	ParseErrors int
	SendErrors  int
}
