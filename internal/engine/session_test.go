package engine

import "testing"

func TestSessionManagerContextCopyIsIndependent(t *testing.T) {
	m := NewSessionManager()
	sess := m.Create("pipeline", map[string]any{"user_prompt": "hello"})

	cp := m.ContextCopy(sess.ID)
	cp["user_prompt"] = "mutated"

	cp2 := m.ContextCopy(sess.ID)
	if cp2["user_prompt"] != "hello" {
		t.Fatalf("mutating a ContextCopy leaked into the session: %v", cp2["user_prompt"])
	}
}

func TestSessionManagerSetContextAndStatus(t *testing.T) {
	m := NewSessionManager()
	sess := m.Create("pipeline", nil)

	m.SetContext(sess.ID, "constraint", "value")
	got, ok := m.Get(sess.ID)
	if !ok {
		t.Fatalf("expected session to exist")
	}
	if got.Context["constraint"] != "value" {
		t.Fatalf("SetContext did not persist the key")
	}

	m.SetStatus(sess.ID, SessionCompleted)
	got, _ = m.Get(sess.ID)
	if got.Status != SessionCompleted {
		t.Fatalf("SetStatus did not persist, got %v", got.Status)
	}
}

func TestSessionManagerUnknownSessionIsSafe(t *testing.T) {
	m := NewSessionManager()
	if cp := m.ContextCopy("does-not-exist"); len(cp) != 0 {
		t.Fatalf("expected an empty copy for an unknown session")
	}
	m.SetContext("does-not-exist", "k", "v") // must not panic
}
