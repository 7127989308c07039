package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/thumbscroll/internal/gesture"
)

var base = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestEvents_StartFinishGet(t *testing.T) {
	repo := newTestStore(t).Events()

	e, err := repo.Start(gesture.Like, base)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if e.ID == "" {
		t.Fatal("Start() returned empty ID")
	}

	got, err := repo.Get(e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Label != gesture.Like {
		t.Errorf("Label = %v, want LIKE", got.Label)
	}
	if !got.StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, base)
	}
	if !got.Open() {
		t.Error("event should be open before Finish")
	}

	end := base.Add(1500 * time.Millisecond)
	if err := repo.Finish(e.ID, end, 30); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err = repo.Get(e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Open() {
		t.Fatal("event should be closed after Finish")
	}
	if !got.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
	}
	if got.Ticks != 30 {
		t.Errorf("Ticks = %d, want 30", got.Ticks)
	}
	if got.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", got.Duration())
	}
}

func TestEvents_StartRejectsNone(t *testing.T) {
	repo := newTestStore(t).Events()

	if _, err := repo.Start(gesture.None, base); err == nil {
		t.Error("Start(NONE) should fail")
	}
}

func TestEvents_FinishTwice(t *testing.T) {
	repo := newTestStore(t).Events()

	e, err := repo.Start(gesture.Dislike, base)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := repo.Finish(e.ID, base.Add(time.Second), 20); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := repo.Finish(e.ID, base.Add(2*time.Second), 40); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Finish() error = %v, want ErrNotFound", err)
	}
}

func TestEvents_GetNotFound(t *testing.T) {
	repo := newTestStore(t).Events()

	if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestEvents_ListNewestFirst(t *testing.T) {
	repo := newTestStore(t).Events()

	labels := []gesture.Label{gesture.Like, gesture.Dislike, gesture.Like}
	for i, l := range labels {
		if _, err := repo.Start(l, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "all", limit: 10, want: 3},
		{name: "limited", limit: 2, want: 2},
		{name: "default", limit: 0, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := repo.List(tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(events) != tt.want {
				t.Fatalf("len(List()) = %d, want %d", len(events), tt.want)
			}
			for i := 1; i < len(events); i++ {
				if events[i].StartedAt.After(events[i-1].StartedAt) {
					t.Errorf("events not newest first at %d", i)
				}
			}
		})
	}
}

func TestRecorder_Episodes(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecorder(s)

	transitions := []gesture.Transition{
		{From: gesture.None, To: gesture.Like, At: base},
		{From: gesture.Like, To: gesture.Dislike, At: base.Add(time.Second), Ticks: 20},
		{From: gesture.Dislike, To: gesture.None, At: base.Add(3 * time.Second), Ticks: 40},
	}
	for _, tr := range transitions {
		if err := rec.Record(tr); err != nil {
			t.Fatalf("Record(%v->%v) error = %v", tr.From, tr.To, err)
		}
	}

	if _, open := rec.OpenEvent(); open {
		t.Error("no event should be open after returning to NONE")
	}

	events, err := s.Events().List(10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	dislike, like := events[0], events[1]
	if like.Label != gesture.Like || like.Ticks != 20 || like.Duration() != time.Second {
		t.Errorf("like event = %+v", like)
	}
	if dislike.Label != gesture.Dislike || dislike.Ticks != 40 || dislike.Duration() != 2*time.Second {
		t.Errorf("dislike event = %+v", dislike)
	}
}

func TestRecorder_HoldLeavesEventOpen(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecorder(s)

	if err := rec.Record(gesture.Transition{From: gesture.None, To: gesture.Dislike, At: base}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	id, open := rec.OpenEvent()
	if !open {
		t.Fatal("expected an open event")
	}
	e, err := s.Events().Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !e.Open() {
		t.Error("event should still be open")
	}
}
