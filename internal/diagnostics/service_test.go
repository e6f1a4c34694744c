package diagnostics

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCreateCounterIsIdempotent(t *testing.T) {
	s := NewService()

	a := s.CreateCounter("message_bus.messages_published")
	b := s.CreateCounter("message_bus.messages_published")
	if a != b {
		t.Error("CreateCounter() returned different counters for the same uid")
	}
	if a.UID() != "message_bus.messages_published" {
		t.Errorf("UID() = %q", a.UID())
	}
}

func TestTickSnapshotsAndResets(t *testing.T) {
	s := NewService()
	c := s.CreateCounter("test.ops")

	for i := 0; i < 42; i++ {
		c.Increment()
	}
	if c.Rate() != 0 {
		t.Errorf("Rate() before tick = %d, want 0", c.Rate())
	}

	s.tickAll()
	if c.Rate() != 42 {
		t.Errorf("Rate() after tick = %d, want 42", c.Rate())
	}

	// The next second starts from zero.
	s.tickAll()
	if c.Rate() != 0 {
		t.Errorf("Rate() after idle tick = %d, want 0", c.Rate())
	}
}

func TestConcurrentIncrements(t *testing.T) {
	s := NewService()
	c := s.CreateCounter("test.ops")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	s.tickAll()
	if c.Rate() != 10000 {
		t.Errorf("Rate() = %d, want 10000", c.Rate())
	}
}

func TestRates(t *testing.T) {
	s := NewService()
	s.CreateCounter("a").Increment()
	s.CreateCounter("b")

	s.tickAll()

	rates := s.Rates()
	if rates["a"] != 1 || rates["b"] != 0 {
		t.Errorf("Rates() = %v, want a:1 b:0", rates)
	}
}

func TestRunExitsOnCancellation(t *testing.T) {
	s := NewService()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not exit after cancellation")
	}
}
