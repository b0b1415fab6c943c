package navigate

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/simp-lee/reels/paginate"
)

// fakeTimers collects scheduled settle callbacks so tests can fire them.
type fakeTimers struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func (f *fakeTimers) schedule(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, fn)
	f.delays = append(f.delays, d)
}

func (f *fakeTimers) fireAll() {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// makePages builds pages whose chapter indexes are given in order.
func makePages(chapters ...int) []paginate.Page {
	pages := make([]paginate.Page, len(chapters))
	for i, ch := range chapters {
		pages[i] = paginate.Page{Number: i + 1, ChapterIndex: ch}
	}
	return pages
}

func TestNavigator_Bounds(t *testing.T) {
	n := New(WithScheduler(Immediate))
	n.Reset(makePages(0, 0, 0, 0, 0))

	if _, ok := n.Previous(); ok {
		t.Error("Previous at index 0 should be a no-op")
	}
	if got := n.State().Current; got != 0 {
		t.Errorf("Current = %d, want 0", got)
	}

	for i := 0; i < 4; i++ {
		if _, ok := n.Next(); !ok {
			t.Fatalf("Next %d rejected", i)
		}
	}
	if _, ok := n.Next(); ok {
		t.Error("Next at index 4 should be a no-op")
	}
	if got := n.State().Current; got != 4 {
		t.Errorf("Current = %d, want 4", got)
	}
}

func TestNavigator_GoToPage(t *testing.T) {
	tests := []struct {
		name   string
		target int
		ok     bool
		dir    Direction
	}{
		{"forward", 3, true, Forward},
		{"backward", 0, true, Backward},
		{"same", 2, false, 0},
		{"negative", -1, false, 0},
		{"past end", 5, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(WithScheduler(Immediate))
			n.Reset(makePages(0, 0, 1, 1, 2))
			n.GoToPage(2)

			tr, ok := n.GoToPage(tt.target)
			if ok != tt.ok {
				t.Fatalf("GoToPage(%d) ok = %v, want %v", tt.target, ok, tt.ok)
			}
			if !ok {
				if got := n.State().Current; got != 2 {
					t.Errorf("Current = %d after rejected move, want 2", got)
				}
				return
			}
			want := Transition{From: 2, To: tt.target, Direction: tt.dir}
			if tr != want {
				t.Errorf("Transition = %+v, want %+v", tr, want)
			}
		})
	}
}

func TestNavigator_BusyLock(t *testing.T) {
	timers := &fakeTimers{}
	n := New(WithScheduler(timers.schedule))
	n.Reset(makePages(0, 0, 0))

	if _, ok := n.Next(); !ok {
		t.Fatal("first Next rejected")
	}
	if !n.State().Busy {
		t.Fatal("expected busy during transition")
	}
	if _, ok := n.Next(); ok {
		t.Error("Next during transition should be a no-op")
	}
	if got := n.State().Current; got != 1 {
		t.Errorf("Current = %d, want 1", got)
	}

	timers.fireAll()
	if n.State().Busy {
		t.Error("expected idle after settle")
	}
	if _, ok := n.Next(); !ok {
		t.Error("Next after settle rejected")
	}
	if len(timers.delays) != 2 || timers.delays[0] != DefaultSettleDelay {
		t.Errorf("settle delays = %v, want two of %v", timers.delays, DefaultSettleDelay)
	}
}

func TestNavigator_StaleTimerAfterReset(t *testing.T) {
	timers := &fakeTimers{}
	n := New(WithScheduler(timers.schedule))
	n.Reset(makePages(0, 0, 0))
	n.Next()
	stale := timers.pending
	timers.pending = nil

	n.Reset(makePages(0, 1))
	if n.State().Busy {
		t.Fatal("Reset should clear the transition lock")
	}
	n.Next()
	for _, fn := range stale {
		fn()
	}
	if !n.State().Busy {
		t.Error("stale timer cleared a newer transition")
	}
	timers.fireAll()
	if n.State().Busy {
		t.Error("current timer did not settle the transition")
	}
}

func TestNavigator_GoToChapter(t *testing.T) {
	n := New(WithScheduler(Immediate))
	n.Reset(makePages(0, 0, 2, 2, 3))

	if tr, ok := n.GoToChapter(2); !ok || tr.To != 2 {
		t.Errorf("GoToChapter(2) = (%+v, %v), want move to 2", tr, ok)
	}
	if _, ok := n.GoToChapter(1); ok {
		t.Error("GoToChapter on a chapter without pages should be a no-op")
	}
	if got := n.State().Current; got != 2 {
		t.Errorf("Current = %d, want 2", got)
	}
}

func TestNavigator_ReplaceClamps(t *testing.T) {
	tests := []struct {
		name  string
		start int
		pages int
		want  int
	}{
		{"keeps index", 3, 10, 3},
		{"clamps to last", 7, 4, 3},
		{"empty", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(WithScheduler(Immediate))
			n.Reset(make([]paginate.Page, 8))
			n.GoToPage(tt.start)

			n.Replace(make([]paginate.Page, tt.pages))
			s := n.State()
			if s.Current != tt.want {
				t.Errorf("Current = %d, want %d", s.Current, tt.want)
			}
			if s.Total > 0 && (s.Current < 0 || s.Current >= s.Total) {
				t.Errorf("Current %d out of range [0, %d)", s.Current, s.Total)
			}
		})
	}
}

func TestNavigator_State(t *testing.T) {
	n := New(WithScheduler(Immediate))

	empty := n.State()
	if empty.Progress != 0 || empty.Total != 0 || empty.Chapter != -1 {
		t.Errorf("empty State = %+v", empty)
	}
	if _, ok := n.CurrentPage(); ok {
		t.Error("CurrentPage on empty list should report false")
	}
	if i, _, ok := n.Current(); ok || i != 0 {
		t.Errorf("Current on empty list = (%d, %v), want (0, false)", i, ok)
	}

	n.Reset(makePages(0, 1, 1, 2))
	s := n.State()
	if s.Progress != 0.25 {
		t.Errorf("Progress = %g, want 0.25", s.Progress)
	}
	if !reflect.DeepEqual(s.ChapterMarkers, []int{1, 3}) {
		t.Errorf("ChapterMarkers = %v, want [1 3]", s.ChapterMarkers)
	}

	n.GoToPage(2)
	s = n.State()
	if s.Progress != 0.75 || s.Chapter != 1 {
		t.Errorf("State after move = %+v, want progress 0.75 in chapter 1", s)
	}
	if p, ok := n.CurrentPage(); !ok || p.Number != 3 {
		t.Errorf("CurrentPage = (%+v, %v), want page number 3", p, ok)
	}
	if i, p, ok := n.Current(); !ok || i != 2 || p.Number != 3 {
		t.Errorf("Current = (%d, %+v, %v), want index 2 with page number 3", i, p, ok)
	}
}

func TestNavigator_OnChange(t *testing.T) {
	timers := &fakeTimers{}
	n := New(WithScheduler(timers.schedule))

	var states []State
	n.OnChange(func(s State) { states = append(states, s) })

	n.Reset(makePages(0, 0))
	n.Next()
	n.Next() // rejected: busy
	timers.fireAll()

	if len(states) != 3 {
		t.Fatalf("got %d notifications, want 3", len(states))
	}
	if states[1].Current != 1 || !states[1].Busy {
		t.Errorf("move notification = %+v", states[1])
	}
	if states[2].Busy {
		t.Errorf("settle notification = %+v, want idle", states[2])
	}
}

func TestDirection_String(t *testing.T) {
	if Forward.String() != "forward" || Backward.String() != "backward" || Direction(0).String() != "none" {
		t.Error("unexpected Direction strings")
	}
}
