package session

import (
	"testing"
	"time"

	"ad-creative-studio/internal/studio"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestCreateAndGet(t *testing.T) {
	s := NewStore(Options{})

	a := s.Create()
	b := s.Create()
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids %q %q", a.ID, b.ID)
	}
	got, ok := s.Get(a.ID)
	if !ok || got != a {
		t.Fatal("Get should return the created session")
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatal("unknown id should not be found")
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestGetOrCreateIsStable(t *testing.T) {
	built := 0
	s := NewStore(Options{NewStudio: func() *studio.Session {
		built++
		return studio.New(studio.Options{})
	}})

	first := s.GetOrCreate("chat:1")
	second := s.GetOrCreate("chat:1")
	if first != second || built != 1 {
		t.Fatalf("session rebuilt: built=%d", built)
	}
}

func TestSweepDropsIdleSessions(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	s := NewStore(Options{Now: c.now})

	old := s.Create()
	c.t = c.t.Add(20 * time.Minute)
	fresh := s.Create()

	if n := s.Sweep(10 * time.Minute); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, ok := s.Get(old.ID); ok {
		t.Fatal("idle session survived")
	}
	if _, ok := s.Get(fresh.ID); !ok {
		t.Fatal("fresh session removed")
	}
	if n := s.Sweep(0); n != 0 {
		t.Fatalf("zero max idle swept %d", n)
	}
}

func TestDelete(t *testing.T) {
	s := NewStore(Options{})
	sess := s.Create()
	if !s.Delete(sess.ID) {
		t.Fatal("Delete should report removal")
	}
	if s.Delete(sess.ID) {
		t.Fatal("second Delete should report nothing removed")
	}
}

func TestEvictHookRunsOnSweepAndDelete(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	var evicted []string
	s := NewStore(Options{Now: c.now, OnEvict: func(id string) { evicted = append(evicted, id) }})

	idle := s.GetOrCreate("tg:1:2")
	c.t = c.t.Add(time.Hour)
	kept := s.Create()

	s.Sweep(10 * time.Minute)
	s.Delete(kept.ID)
	s.Delete("missing")

	if len(evicted) != 2 || evicted[0] != idle.ID || evicted[1] != kept.ID {
		t.Fatalf("evicted = %v", evicted)
	}
}
