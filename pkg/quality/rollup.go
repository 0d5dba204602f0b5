package quality

// Label is a per-pipeline result fed into RollupDay. It may come from either
// QualityState or TimelineStatus.
type Label string

// RollupDay resolves the labels of one day to a single state. Priority, high
// to low: in progress, interrupted, bad or failed, ok or partially succeeded.
// The day is good only when every label is good or succeeded.
func RollupDay(labels []Label) QualityState {
	if len(labels) == 0 {
		return Unknown
	}

	seen := map[QualityState]bool{}
	allGood := true
	for _, l := range labels {
		state := labelState(l)
		seen[state] = true
		if state != Good {
			allGood = false
		}
	}

	switch {
	case seen[InProgress]:
		return InProgress
	case seen[Interrupted]:
		return Interrupted
	case seen[Bad]:
		return Bad
	case seen[OK]:
		return OK
	case allGood:
		return Good
	default:
		return Unknown
	}
}

func labelState(l Label) QualityState {
	switch l {
	case Label(InProgress), Label(TimelineInProgress):
		return InProgress
	case Label(Interrupted):
		return Interrupted
	case Label(Bad), Label(TimelineFailed):
		return Bad
	case Label(OK), Label(TimelinePartiallySucceeded):
		return OK
	case Label(Good), Label(TimelineSucceeded):
		return Good
	default:
		return Unknown
	}
}
