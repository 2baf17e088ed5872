package task

import (
	"context"
	"testing"
	"time"
)

func TestSpawnRunsAndSignalsDone(t *testing.T) {
	started := make(chan struct{})
	h := Spawn(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("fn never started")
	}

	h.Kill()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("handle never reported done after Kill")
	}
}

func TestSpawnStopsWithParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := Spawn(parent, func(ctx context.Context) {
		<-ctx.Done()
	})

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("handle never reported done after parent cancellation")
	}
}

func TestLinkedKillsPartner(t *testing.T) {
	a := Spawn(context.Background(), func(ctx context.Context) { <-ctx.Done() })
	b := Spawn(context.Background(), func(ctx context.Context) { <-ctx.Done() })
	Linked(a, b)

	a.Kill()

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("killing a never tore down b")
	}
}
