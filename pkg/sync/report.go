package sync

import (
	"github.com/sidkik/studymirror/pkg/catalog"
)

// State is the progress of a single study within a sync run.
type State string

const (
	// StatePending means the study hasn't been looked at yet.
	StatePending State = "Pending"

	// StateSkipped means the study was already mirrored.
	StateSkipped State = "Skipped"

	// StateFetching means the study's artifacts are being downloaded.
	StateFetching State = "Fetching"

	// StateMirrored means both artifacts were written.
	StateMirrored State = "Mirrored"

	// StateFailed means the study couldn't be mirrored in this run. It isn't
	// saved anywhere. The study is just left stale.
	StateFailed State = "Failed"
)

// StudyResult is the final state of a study after a run.
type StudyResult struct {
	Study catalog.Study
	State State

	// Err is set for failed studies.
	Err error
}

// Report describes what happened to every study in a run, in the order the
// studies were processed.
type Report struct {
	Results []StudyResult
}

func (r *Report) add(study catalog.Study, state State, err error) {
	r.Results = append(r.Results, StudyResult{Study: study, State: state, Err: err})
}

// Count returns the number of studies that ended in `state`.
func (r Report) Count(state State) (n int) {
	for _, res := range r.Results {
		if res.State == state {
			n++
		}
	}
	return n
}

// Mirrored returns the number of studies that were downloaded.
func (r Report) Mirrored() int {
	return r.Count(StateMirrored)
}

// Skipped returns the number of studies that were already up to date.
func (r Report) Skipped() int {
	return r.Count(StateSkipped)
}

// Failed returns the number of studies that couldn't be downloaded.
func (r Report) Failed() int {
	return r.Count(StateFailed)
}
