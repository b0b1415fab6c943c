package paginate

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/image/math/fixed"
)

func TestCachedMeasurer(t *testing.T) {
	calls := 0
	m := NewCachedMeasurer(MeasurerFunc(func(fragment string, width float64, _ Font) (float64, error) {
		calls++
		return float64(len(fragment)) * 600 / width, nil
	}))
	f := Font{Size: 18, LineHeight: 1.8}

	for i := 0; i < 3; i++ {
		h, err := m.Measure("<p>a</p>", 600, f)
		if err != nil {
			t.Fatalf("Measure: %v", err)
		}
		if h != 8 {
			t.Errorf("Measure = %g, want 8", h)
		}
	}
	if calls != 1 {
		t.Errorf("underlying calls = %d, want 1", calls)
	}

	if _, err := m.Measure("<p>a</p>", 300, f); err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if _, err := m.Measure("<p>a</p>", 600, Font{Size: 20, LineHeight: 1.8}); err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if calls != 3 || m.Len() != 3 {
		t.Errorf("calls = %d, cached = %d, want 3 and 3", calls, m.Len())
	}

	m.Flush()
	if m.Len() != 0 {
		t.Errorf("Len after Flush = %d, want 0", m.Len())
	}
}

func TestCachedMeasurer_ErrorsNotCached(t *testing.T) {
	fail := true
	m := NewCachedMeasurer(MeasurerFunc(func(string, float64, Font) (float64, error) {
		if fail {
			return 0, errors.New("unavailable")
		}
		return 42, nil
	}))
	f := Font{Size: 18, LineHeight: 1.8}

	if _, err := m.Measure("<p>a</p>", 600, f); err == nil {
		t.Fatal("expected error")
	}
	fail = false
	h, err := m.Measure("<p>a</p>", 600, f)
	if err != nil || h != 42 {
		t.Errorf("Measure = (%g, %v), want (42, nil)", h, err)
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestFaceMeasurer_Heights(t *testing.T) {
	m, err := NewFaceMeasurer()
	if err != nil {
		t.Fatalf("NewFaceMeasurer: %v", err)
	}
	f := Font{Size: 18, LineHeight: 1.8}

	tests := []struct {
		name     string
		fragment string
		want     float64
	}{
		{"empty", "", 0},
		// 18 margin + 32.4 line + 18 margin
		{"one line paragraph", "<p>Hello</p>", 68.4},
		// margins between paragraphs collapse to one
		{"two paragraphs", "<p>Hello</p><p>World</p>", 118.8},
		{"line break", "<p>Hello<br/>World</p>", 100.8},
		// h1 is 36px with 0.67em margins
		{"heading", "<h1>Title</h1>", 24.12 + 64.8 + 24.12},
		{"image only", `<p><img src="x.png"/></p>`, 36},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Measure(tt.fragment, 600, f)
			if err != nil {
				t.Fatalf("Measure: %v", err)
			}
			if !approxEqual(got, tt.want) {
				t.Errorf("Measure(%q) = %g, want %g", tt.fragment, got, tt.want)
			}
		})
	}
}

func TestFaceMeasurer_Wrapping(t *testing.T) {
	m, err := NewFaceMeasurer()
	if err != nil {
		t.Fatalf("NewFaceMeasurer: %v", err)
	}
	f := Font{Size: 18, LineHeight: 1.8}
	text := "<p>The quick brown fox jumps over the lazy dog and keeps running far beyond the hills.</p>"

	wide, err := m.Measure(text, 2000, f)
	if err != nil {
		t.Fatalf("Measure wide: %v", err)
	}
	narrow, err := m.Measure(text, 120, f)
	if err != nil {
		t.Fatalf("Measure narrow: %v", err)
	}
	if narrow <= wide {
		t.Errorf("narrow height %g should exceed wide height %g", narrow, wide)
	}

	larger, err := m.Measure(text, 120, Font{Size: 24, LineHeight: 1.8})
	if err != nil {
		t.Fatalf("Measure larger: %v", err)
	}
	if larger < narrow {
		t.Errorf("24px height %g is less than 18px height %g", larger, narrow)
	}
}

func TestCountLines(t *testing.T) {
	w := func(px int) token { return token{width: fixed.I(px)} }
	tests := []struct {
		name   string
		tokens []token
		limit  int
		want   int
	}{
		{"single", []token{w(10)}, 100, 1},
		{"fits", []token{w(40), w(40)}, 100, 1},
		{"wraps", []token{w(40), w(40), w(40)}, 100, 2},
		{"overlong token", []token{w(10), w(500), w(10)}, 100, 3},
		{"forced break", []token{w(10), {width: fixed.I(10), breaks: 2}}, 100, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countLines(tt.tokens, fixed.I(5), fixed.I(tt.limit)); got != tt.want {
				t.Errorf("countLines = %d, want %d", got, tt.want)
			}
		})
	}
}
