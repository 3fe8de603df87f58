package page

import (
	"bytes"
	stderrors "errors"
	"io"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/PentesterFlow/OpenPage/internal/logger"
)

// fakePointer records mouse traffic.
type fakePointer struct {
	pos     proto.Point
	moves   []proto.Point
	downs   int
	ups     int
	clicks  []int
	failAt  int
	moveErr error
	upErr   error
}

func (f *fakePointer) Position() proto.Point { return f.pos }

func (f *fakePointer) MoveTo(p proto.Point) error {
	if f.moveErr != nil && len(f.moves) == f.failAt {
		return f.moveErr
	}
	f.moves = append(f.moves, p)
	f.pos = p
	return nil
}

func (f *fakePointer) Down(proto.InputMouseButton, int) error { f.downs++; return nil }

func (f *fakePointer) Up(proto.InputMouseButton, int) error { f.ups++; return f.upErr }

func (f *fakePointer) Click(_ proto.InputMouseButton, n int) error {
	f.clicks = append(f.clicks, n)
	return nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func TestSlide(t *testing.T) {
	distances := []float64{0, 1, 37.5, 132, 260}

	for seed := int64(1); seed <= 20; seed++ {
		for _, distance := range distances {
			m := &fakePointer{pos: proto.Point{X: 100, Y: 40}}
			var pauses []time.Duration

			steps, err := slide(m, distance, rand.New(rand.NewSource(seed)), func(d time.Duration) {
				pauses = append(pauses, d)
			}, quietLogger())
			if err != nil {
				t.Fatalf("slide() error = %v", err)
			}

			if len(m.moves) != sliderSteps || len(steps) != sliderSteps {
				t.Fatalf("moves = %d, steps = %d, want %d", len(m.moves), len(steps), sliderSteps)
			}
			if m.ups != 1 {
				t.Errorf("ups = %d, want 1", m.ups)
			}

			sum := 0.0
			for i, step := range steps {
				if step < distance/8-1e-9 || step > distance/7.5+1e-9 {
					t.Errorf("step %d = %v outside [%v, %v]", i, step, distance/8, distance/7.5)
				}
				sum += step
			}
			if sum < 7*distance/8-1e-9 || sum > 7*distance/7.5+1e-9 {
				t.Errorf("sum = %v outside [%v, %v]", sum, 7*distance/8, 7*distance/7.5)
			}
			if got := m.pos.X - 100; got < sum-1e-9 || got > sum+1e-9 {
				t.Errorf("pointer travelled %v, want %v", got, sum)
			}
			for _, mv := range m.moves {
				if mv.Y != 40 {
					t.Errorf("move changed Y to %v", mv.Y)
				}
			}

			if len(pauses) != sliderSteps {
				t.Errorf("pauses = %d, want %d", len(pauses), sliderSteps)
			}
			for _, d := range pauses {
				if d < 0 || d >= time.Second {
					t.Errorf("pause %v outside [0, 1s)", d)
				}
			}
		}
	}
}

func TestSlide_MoveFailureReleases(t *testing.T) {
	boom := stderrors.New("target closed")
	m := &fakePointer{failAt: 3, moveErr: boom}

	steps, err := slide(m, 100, rand.New(rand.NewSource(1)), func(time.Duration) {}, quietLogger())
	if !stderrors.Is(err, boom) {
		t.Fatalf("slide() error = %v, want %v", err, boom)
	}
	if len(steps) != 3 {
		t.Errorf("steps = %d, want 3", len(steps))
	}
	if m.ups != 1 {
		t.Errorf("ups = %d, want the button released once", m.ups)
	}
}

func TestSlide_ReleaseFailureLogged(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: logger.DebugLevel, Output: &buf})

	boom := stderrors.New("target closed")
	m := &fakePointer{failAt: 0, moveErr: boom, upErr: stderrors.New("mouse up refused")}

	_, err := slide(m, 100, rand.New(rand.NewSource(1)), func(time.Duration) {}, log)
	if !stderrors.Is(err, boom) {
		t.Fatalf("slide() error = %v, want the move error %v", err, boom)
	}

	out := buf.String()
	for _, want := range []string{"mouse up refused", "move_slider", "release"} {
		if !strings.Contains(out, want) {
			t.Errorf("log should mention %q: %s", want, out)
		}
	}
}

func TestReleaseLeft(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: logger.DebugLevel, Output: &buf})

	m := &fakePointer{}
	releaseLeft(m, log, "drag_to")
	if m.ups != 1 || buf.Len() != 0 {
		t.Errorf("clean release: ups = %d, log = %q", m.ups, buf.String())
	}

	m.upErr = stderrors.New("no such session")
	releaseLeft(m, log, "drag_to")
	if !strings.Contains(buf.String(), "no such session") {
		t.Errorf("failed release should be logged: %q", buf.String())
	}
}

func TestOptionalTarget(t *testing.T) {
	if loc, err := optionalTarget("click_left", nil); loc != nil || err != nil {
		t.Errorf("no target = %v, %v", loc, err)
	}

	loc, err := optionalTarget("click_left", []Locator{ID("a")})
	if err != nil || loc == nil || loc.Value != "a" {
		t.Errorf("one target = %v, %v", loc, err)
	}

	if _, err := optionalTarget("click_left", []Locator{ID("a"), ID("b")}); !IsInvalidArgument(err) {
		t.Errorf("two targets error = %v, want invalid argument", err)
	}
}

func TestCheckAttributeValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		ok    bool
	}{
		{"string", "hidden", true},
		{"int", 3, true},
		{"int64", int64(3), true},
		{"uint8", uint8(3), true},
		{"float", 1.5, false},
		{"bool", true, false},
		{"nil", nil, false},
		{"slice", []string{"a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAttributeValue(tt.value)
			if tt.ok && err != nil {
				t.Errorf("checkAttributeValue(%v) = %v", tt.value, err)
			}
			if !tt.ok && !IsInvalidArgument(err) {
				t.Errorf("checkAttributeValue(%v) = %v, want invalid argument", tt.value, err)
			}
		})
	}
}
