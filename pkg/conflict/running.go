package conflict

import "github.com/limaJavier/indexoptimizer/pkg/timegrid"

// Running accumulates the slots of a partial assignment for incremental pruning. It cannot capture
// every pairwise rule, so complete assignments still go through Rules.Valid.
type Running struct {
	rules      Rules
	full       timegrid.Mask
	nonLecture timegrid.Mask
}

// NewRunning seeds the accumulator with the caller's busy time, which never enjoys the lecture
// exemption
func NewRunning(rules Rules, constraint timegrid.Mask) Running {
	return Running{
		rules:      rules,
		full:       constraint,
		nonLecture: constraint,
	}
}

func (running Running) Fits(entry Entry) bool {
	if !running.rules.LectureExempt {
		return !entry.Full.Intersects(running.full)
	}
	return !entry.nonLecture().Intersects(running.full) && !entry.Full.Intersects(running.nonLecture)
}

func (running Running) With(entry Entry) Running {
	running.full = running.full.Or(entry.Full)
	running.nonLecture = running.nonLecture.Or(entry.nonLecture())
	return running
}
