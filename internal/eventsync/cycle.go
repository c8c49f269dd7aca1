package eventsync

import (
	"sync"
	"time"

	"admincal/internal/model"
)

// Phase is the state of one refresh cycle.
//
//	Idle -> FetchingBoth -> {ProjectsLoaded | MeetingsLoaded} -> BothLoaded
//
// A source whose fetch failed never advances its half, so a cycle with one
// failure ends in the other source's loaded phase and a cycle with two
// failures stays in FetchingBoth.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetchingBoth
	PhaseProjectsLoaded
	PhaseMeetingsLoaded
	PhaseBothLoaded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetchingBoth:
		return "fetching_both"
	case PhaseProjectsLoaded:
		return "projects_loaded"
	case PhaseMeetingsLoaded:
		return "meetings_loaded"
	case PhaseBothLoaded:
		return "both_loaded"
	default:
		return "unknown"
	}
}

// loaded returns the phase reached when source finishes loading in p.
func (p Phase) loaded(source model.SourceType) Phase {
	switch {
	case p == PhaseFetchingBoth && source == model.SourceProject:
		return PhaseProjectsLoaded
	case p == PhaseFetchingBoth && source == model.SourceMeeting:
		return PhaseMeetingsLoaded
	case p == PhaseProjectsLoaded && source == model.SourceMeeting,
		p == PhaseMeetingsLoaded && source == model.SourceProject:
		return PhaseBothLoaded
	default:
		return p
	}
}

// Cycle describes one refresh.
type Cycle struct {
	ID         string
	Phase      Phase
	StartedAt  time.Time
	FinishedAt time.Time // zero while the cycle is running
	Errors     map[model.SourceType]error
}

// Done reports whether both fetches of the cycle have returned.
func (c Cycle) Done() bool { return !c.FinishedAt.IsZero() }

// Failed reports whether both sources failed.
func (c Cycle) Failed() bool { return len(c.Errors) == 2 }

func (c Cycle) clone() Cycle {
	out := c
	if c.Errors != nil {
		out.Errors = make(map[model.SourceType]error, len(c.Errors))
		for k, v := range c.Errors {
			out.Errors[k] = v
		}
	}
	return out
}

// cycleState is a Cycle being written by the two fetch goroutines.
type cycleState struct {
	mu sync.Mutex
	Cycle
}

func (c *cycleState) snapshot() Cycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Cycle.clone()
}
