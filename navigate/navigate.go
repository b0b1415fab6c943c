// Package navigate tracks the reading position within a Page List.
//
// A [Navigator] holds the current page index and a transition lock. A move
// to a different valid page starts a transition that settles after a fixed
// delay; moves requested while a transition is in flight are ignored rather
// than queued. Out-of-range and same-page moves are also no-ops.
package navigate

import (
	"sync"
	"time"

	"github.com/simp-lee/reels/paginate"
)

// DefaultSettleDelay is how long a page transition holds the lock.
const DefaultSettleDelay = 300 * time.Millisecond

// Direction is the direction of a page transition.
type Direction int

const (
	Forward Direction = iota + 1
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "none"
	}
}

// Transition describes an accepted page move.
type Transition struct {
	From      int       `json:"from"`
	To        int       `json:"to"`
	Direction Direction `json:"direction"`
}

// State is a snapshot of the navigation state for a rendering layer.
type State struct {
	// Current is the 0-based index into the Page List.
	Current int `json:"current" yaml:"current"`

	// Total is the number of pages.
	Total int `json:"total" yaml:"total"`

	// Progress is (Current+1)/Total, or 0 for an empty Page List.
	Progress float64 `json:"progress" yaml:"progress"`

	// ChapterMarkers are the ascending page positions where the chapter
	// index changes from the previous page.
	ChapterMarkers []int `json:"chapter_markers" yaml:"chapter_markers"`

	// Chapter is the chapter index of the current page, or -1 when empty.
	Chapter int `json:"chapter" yaml:"chapter"`

	// Busy reports whether a transition is in flight.
	Busy bool `json:"busy" yaml:"busy"`
}

// Scheduler runs f once after d. The default is backed by time.AfterFunc.
type Scheduler func(d time.Duration, f func())

// Immediate is a Scheduler that runs f synchronously, settling every
// transition before the move returns.
func Immediate(_ time.Duration, f func()) { f() }

func afterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Option configures a Navigator.
type Option func(*Navigator)

// WithSettleDelay sets the transition settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(n *Navigator) { n.settle = d }
}

// WithScheduler replaces the timer used to settle transitions.
func WithScheduler(s Scheduler) Option {
	return func(n *Navigator) { n.schedule = s }
}

// Navigator is the reading-position state machine. It is safe for
// concurrent use.
type Navigator struct {
	mu        sync.Mutex
	pages     []paginate.Page
	current   int
	busy      bool
	gen       uint64
	settle    time.Duration
	schedule  Scheduler
	observers []func(State)
}

// New returns a Navigator over an empty Page List.
func New(opts ...Option) *Navigator {
	n := &Navigator{
		settle:   DefaultSettleDelay,
		schedule: afterFunc,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SetSettleDelay changes the delay for transitions started afterwards.
func (n *Navigator) SetSettleDelay(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.settle = d
}

// OnChange registers fn to receive a snapshot after every accepted move,
// settle, reset and replace. Callbacks run without the lock held.
func (n *Navigator) OnChange(fn func(State)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, fn)
}

// GoToPage starts a transition to page i. It reports false, changing
// nothing, when i is out of range, equals the current index, or a
// transition is already in flight.
func (n *Navigator) GoToPage(i int) (Transition, bool) {
	return n.move(func(int) int { return i })
}

// Next moves one page forward.
func (n *Navigator) Next() (Transition, bool) {
	return n.move(func(cur int) int { return cur + 1 })
}

// Previous moves one page back.
func (n *Navigator) Previous() (Transition, bool) {
	return n.move(func(cur int) int { return cur - 1 })
}

// GoToChapter moves to the first page of the chapter. It is a no-op when
// the chapter has no pages.
func (n *Navigator) GoToChapter(chapterIndex int) (Transition, bool) {
	return n.move(func(int) int {
		for i, p := range n.pages {
			if p.ChapterIndex == chapterIndex {
				return i
			}
		}
		return -1
	})
}

// move resolves the target under the lock so that relative moves see a
// consistent current index.
func (n *Navigator) move(target func(cur int) int) (Transition, bool) {
	n.mu.Lock()
	i := target(n.current)
	if n.busy || i < 0 || i >= len(n.pages) || i == n.current {
		n.mu.Unlock()
		return Transition{}, false
	}

	tr := Transition{From: n.current, To: i, Direction: Backward}
	if i > n.current {
		tr.Direction = Forward
	}
	n.current = i
	n.busy = true
	gen, settle := n.gen, n.settle
	state, observers := n.snapshotLocked()
	n.mu.Unlock()

	notify(observers, state)
	n.schedule(settle, func() { n.settled(gen) })
	return tr, true
}

// settled ends the transition started in generation gen. Timers that
// outlive a Reset belong to an older generation and are ignored.
func (n *Navigator) settled(gen uint64) {
	n.mu.Lock()
	if gen != n.gen || !n.busy {
		n.mu.Unlock()
		return
	}
	n.busy = false
	state, observers := n.snapshotLocked()
	n.mu.Unlock()
	notify(observers, state)
}

// Reset installs the Page List of a newly loaded book and returns to the
// first page. Any in-flight transition is abandoned.
func (n *Navigator) Reset(pages []paginate.Page) {
	n.mu.Lock()
	n.pages = append([]paginate.Page(nil), pages...)
	n.current = 0
	n.busy = false
	n.gen++
	state, observers := n.snapshotLocked()
	n.mu.Unlock()
	notify(observers, state)
}

// Replace installs a re-paginated Page List for the same book. The current
// index is kept when still valid and clamped to the last page otherwise.
func (n *Navigator) Replace(pages []paginate.Page) {
	n.mu.Lock()
	n.pages = append([]paginate.Page(nil), pages...)
	n.current = clamp(n.current, len(n.pages))
	state, observers := n.snapshotLocked()
	n.mu.Unlock()
	notify(observers, state)
}

func clamp(i, total int) int {
	switch {
	case total == 0 || i < 0:
		return 0
	case i >= total:
		return total - 1
	default:
		return i
	}
}

// State returns a snapshot of the navigation state.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, _ := n.snapshotLocked()
	return s
}

// CurrentPage returns the page at the current index.
func (n *Navigator) CurrentPage() (paginate.Page, bool) {
	_, p, ok := n.Current()
	return p, ok
}

// Current returns the current index together with the page at it, read
// under one lock.
func (n *Navigator) Current() (int, paginate.Page, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.pages) == 0 {
		return n.current, paginate.Page{}, false
	}
	return n.current, n.pages[n.current], true
}

// Pages returns a copy of the Page List.
func (n *Navigator) Pages() []paginate.Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]paginate.Page(nil), n.pages...)
}

func (n *Navigator) snapshotLocked() (State, []func(State)) {
	s := State{
		Current:        n.current,
		Total:          len(n.pages),
		ChapterMarkers: ChapterMarkers(n.pages),
		Chapter:        -1,
		Busy:           n.busy,
	}
	if s.Total > 0 {
		s.Progress = float64(n.current+1) / float64(s.Total)
		s.Chapter = n.pages[n.current].ChapterIndex
	}
	return s, append(([]func(State))(nil), n.observers...)
}

func notify(observers []func(State), s State) {
	for _, fn := range observers {
		fn(s)
	}
}

// ChapterMarkers returns the positions in pages where the chapter index
// differs from the preceding page.
func ChapterMarkers(pages []paginate.Page) []int {
	var markers []int
	for i := 1; i < len(pages); i++ {
		if pages[i].ChapterIndex != pages[i-1].ChapterIndex {
			markers = append(markers, i)
		}
	}
	return markers
}
