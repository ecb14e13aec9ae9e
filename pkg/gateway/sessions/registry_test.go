package sessions

import (
	"context"
	"sync/atomic"
	"testing"
)

type stubSession struct {
	disconnects atomic.Int32
}

func (s *stubSession) Connect(ctx context.Context) error { return nil }

func (s *stubSession) SendAudio(audioData, mime string) {}

func (s *stubSession) SendText(text string) {}

func (s *stubSession) Disconnect() { s.disconnects.Add(1) }

func TestRegistryGetSetRemove(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Get("a"); ok {
		t.Fatal("empty registry must not report sessions")
	}

	sess := &stubSession{}
	r.Set("a", sess)
	got, ok := r.Get("a")
	if !ok || got != sess {
		t.Fatalf("got %v ok=%v", got, ok)
	}
	if r.Count() != 1 {
		t.Fatalf("want count 1, got %d", r.Count())
	}

	removed, ok := r.Remove("a")
	if !ok || removed != sess {
		t.Fatalf("got %v ok=%v", removed, ok)
	}
	if sess.disconnects.Load() != 0 {
		t.Fatal("Remove must not disconnect")
	}
	if _, ok := r.Get("a"); ok {
		t.Fatal("entry survived removal")
	}
	if _, ok := r.Remove("a"); ok {
		t.Fatal("second removal must report absence")
	}
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()
	first := &stubSession{}
	second := &stubSession{}

	r.Set("a", first)
	r.Set("a", second)

	got, _ := r.Get("a")
	if got != second {
		t.Fatal("replacement not visible")
	}
	if r.Count() != 1 {
		t.Fatalf("want count 1, got %d", r.Count())
	}
}

func TestRegistryDisconnectAll(t *testing.T) {
	r := NewRegistry()
	a := &stubSession{}
	b := &stubSession{}
	r.Set("a", a)
	r.Set("b", b)

	if got := r.DisconnectAll(); got != 2 {
		t.Fatalf("want 2 disconnects, got %d", got)
	}
	if a.disconnects.Load() != 1 || b.disconnects.Load() != 1 {
		t.Fatalf("sessions not disconnected exactly once: a=%d b=%d",
			a.disconnects.Load(), b.disconnects.Load())
	}
	if r.Count() != 0 {
		t.Fatalf("registry not cleared, count %d", r.Count())
	}
	if got := r.DisconnectAll(); got != 0 {
		t.Fatalf("second pass must be empty, got %d", got)
	}
}

func TestRegistryNilReceiver(t *testing.T) {
	var r *Registry
	if _, ok := r.Get("a"); ok {
		t.Fatal("nil registry reported a session")
	}
	r.Set("a", &stubSession{})
	if r.Count() != 0 {
		t.Fatal("nil registry reported a count")
	}
	if got := r.DisconnectAll(); got != 0 {
		t.Fatalf("nil registry disconnected %d", got)
	}
}
