package session

// Outcome is the terminal state of one call through the Transport.
type Outcome int

const (
	// OutcomeOK means the first response was not an authorization failure.
	OutcomeOK Outcome = iota
	// OutcomeRetriedOK means a 401 was followed by a refresh and a successful replay.
	OutcomeRetriedOK
	// OutcomeRetriedFailed means the replay after a refresh failed too.
	OutcomeRetriedFailed
	// OutcomeRefreshFailed means a 401 was followed by a failed refresh.
	OutcomeRefreshFailed
	// OutcomeTransportFailed means the first dispatch never got a response.
	OutcomeTransportFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRetriedOK:
		return "retried-ok"
	case OutcomeRetriedFailed:
		return "retried-failed"
	case OutcomeRefreshFailed:
		return "refresh-failed"
	case OutcomeTransportFailed:
		return "transport-failed"
	default:
		return "unknown"
	}
}
