package crawler

import "github.com/nao1215/reportscan/internal/identity"

// Phase is the position of a crawl in its state machine.
type Phase int

const (
	// PhaseFetching fetches State.Page for the first time.
	PhaseFetching Phase = iota
	// PhaseRetrying fetches State.Page again after a failure.
	PhaseRetrying
	// PhaseDone is reached after the last page was processed.
	PhaseDone
	// PhaseAbortedRange is reached when a report predates the lower bound.
	PhaseAbortedRange
	// PhaseExhausted is reached when a page failed RetryLimit times.
	PhaseExhausted
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseRetrying:
		return "retrying"
	case PhaseDone:
		return "done"
	case PhaseAbortedRange:
		return "aborted_range"
	case PhaseExhausted:
		return "retry_exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further page is fetched in phase p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseAbortedRange || p == PhaseExhausted
}

// State is the mutable part of one crawl. It is owned by the loop
// goroutine and never shared.
type State struct {
	// Page is the page being fetched, starting at 1.
	Page int

	// LastPage is resolved before the first fetch and immutable thereafter.
	LastPage int

	// ExceedRange is set once a record predates the lower bound and is
	// never cleared.
	ExceedRange bool

	// Accepted counts the reports accumulated so far.
	Accepted int

	// Attempt counts the consecutive failures of the current fetch.
	Attempt int

	// Fetched counts the pages fetched successfully.
	Fetched int

	Phase Phase

	// Identity is presented by the next fetch.
	Identity identity.Identity

	// OldestDate is the earliest report date seen so far. A later date
	// after it means the source is not sorted newest first.
	OldestDate string
}

// newState returns the state before the last page is known.
func newState(id identity.Identity) State {
	return State{Page: 1, Phase: PhaseFetching, Identity: id}
}

// resolve records the last page. A crawl with no page is done at once.
func (s *State) resolve(lastPage int) {
	s.LastPage = lastPage
	s.Attempt = 0
	s.Phase = PhaseFetching
	if s.Page > s.LastPage {
		s.Phase = PhaseDone
	}
}

// succeed moves past a processed page. exceeded tells whether the page
// held a report older than the lower bound.
func (s *State) succeed(exceeded bool) {
	s.Attempt = 0
	s.Fetched++
	if exceeded {
		s.ExceedRange = true
	}
	if s.ExceedRange {
		s.Phase = PhaseAbortedRange
		return
	}
	s.Page++
	s.Phase = PhaseFetching
	if s.Page > s.LastPage {
		s.Phase = PhaseDone
	}
}

// fail records a failed fetch and rotates the identity. It returns false
// when limit attempts have been made.
func (s *State) fail(pool identity.Pool, limit int) bool {
	s.Attempt++
	if s.Attempt >= limit {
		s.Phase = PhaseExhausted
		return false
	}
	s.Phase = PhaseRetrying
	s.Identity = identity.Next(pool, s.Identity)
	return true
}

// observeDate tracks the oldest date and reports whether date is newer
// than a date seen before it.
func (s *State) observeDate(date string) bool {
	if date == "" {
		return false
	}
	if s.OldestDate == "" || date < s.OldestDate {
		s.OldestDate = date
		return false
	}
	return date > s.OldestDate
}
