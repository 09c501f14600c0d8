package main

import (
	"encoding/json"
	"testing"
)

// testStore is an in-memory Store that mimics the file store's
// serialization boundary: callers never share memory with the stored
// document.
type testStore struct {
	t       *testing.T
	state   *GameState
	saves   int
	loadErr error
	saveErr error
}

func cloneState(t *testing.T, state *GameState) *GameState {
	t.Helper()

	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("clone marshal: %v", err)
	}
	out := &GameState{}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("clone unmarshal: %v", err)
	}
	return out
}

func newTestStore(t *testing.T) *testStore {
	return &testStore{t: t}
}

func (m *testStore) Load() (*GameState, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.state == nil {
		m.state = defaultState()
	}
	return cloneState(m.t, m.state), nil
}

func (m *testStore) Save(state *GameState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = cloneState(m.t, state)
	m.saves++
	return nil
}

func newTestGame(t *testing.T) (*SentenceGame, *testStore) {
	store := newTestStore(t)
	return NewSentenceGame(store), store
}

func mustRegister(t *testing.T, g *SentenceGame, username, displayName string) User {
	t.Helper()

	user, err := g.Register(username, displayName, "pw")
	if err != nil {
		t.Fatalf("Register(%q): %v", username, err)
	}
	return user
}

func mustSetPhase(t *testing.T, g *SentenceGame, target int) {
	t.Helper()

	if _, err := g.SetPhase(target); err != nil {
		t.Fatalf("SetPhase(%d): %v", target, err)
	}
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := errorKind(err); got != kind {
		t.Fatalf("error kind = %d, want %d (err: %v)", got, kind, err)
	}
}

func TestRegister(t *testing.T) {
	g, store := newTestGame(t)

	user := mustRegister(t, g, "  Alice ", "Alice A")
	if user.Username != "alice" {
		t.Fatalf("username not normalized: %q", user.Username)
	}
	if len(store.state.Users) != 1 {
		t.Fatalf("user count = %d, want 1", len(store.state.Users))
	}

	// Same username with different casing is a duplicate.
	_, err := g.Register("ALICE", "Other Alice", "pw2")
	wantKind(t, err, KindDuplicate)
	if len(store.state.Users) != 1 {
		t.Fatalf("duplicate registration mutated state: %d users", len(store.state.Users))
	}

	for _, tc := range []struct {
		name                            string
		username, displayName, password string
	}{
		{"empty username", "  ", "Name", "pw"},
		{"empty display name", "bob", " ", "pw"},
		{"empty password", "bob", "Bob", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.Register(tc.username, tc.displayName, tc.password)
			wantKind(t, err, KindValidation)
		})
	}
}

func TestRegisterClosedAfterPhaseOne(t *testing.T) {
	g, _ := newTestGame(t)

	mustRegister(t, g, "alice", "Alice")
	mustSetPhase(t, g, 2)

	_, err := g.Register("bob", "Bob", "pw")
	wantKind(t, err, KindPhaseOrder)
}

func TestLogin(t *testing.T) {
	g, _ := newTestGame(t)
	mustRegister(t, g, "alice", "Alice A")

	user, err := g.Login("Alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.DisplayName != "Alice A" {
		t.Fatalf("display name = %q", user.DisplayName)
	}

	_, err = g.Login("alice", "wrong")
	wantKind(t, err, KindAuth)

	_, err = g.Login("nobody", "pw")
	wantKind(t, err, KindAuth)

	_, err = g.Login("", "")
	wantKind(t, err, KindValidation)
}

func TestSetPhaseValidation(t *testing.T) {
	g, _ := newTestGame(t)
	mustSetPhase(t, g, 2)

	for _, tc := range []struct {
		name   string
		target int
		kind   ErrorKind
	}{
		{"zero", 0, KindInvalidPhase},
		{"too high", 5, KindInvalidPhase},
		{"regression", 1, KindPhaseOrder},
		{"re-entry", 2, KindPhaseOrder},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.SetPhase(tc.target)
			wantKind(t, err, tc.kind)
		})
	}

	mustSetPhase(t, g, 4)
	_, err := g.SetPhase(3)
	wantKind(t, err, KindPhaseOrder)
}

func sentenceTexts(entries []SentenceEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, s := range entries {
		m[s.Username] = s.Text
	}
	return m
}

func TestPhaseTransitionShufflesOnce(t *testing.T) {
	g, store := newTestGame(t)

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		mustRegister(t, g, name, "Student "+name)
	}
	mustSetPhase(t, g, 2)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		if err := g.SubmitSentence(name, "sentence by "+name); err != nil {
			t.Fatalf("SubmitSentence(%q): %v", name, err)
		}
	}

	before := sentenceTexts(store.state.Sentences)

	mustSetPhase(t, g, 3)

	after := store.state.Sentences
	if len(after) != len(before) {
		t.Fatalf("sentence count changed: %d -> %d", len(before), len(after))
	}
	for _, s := range after {
		if before[s.Username] != s.Text {
			t.Fatalf("sentence for %q corrupted by shuffle", s.Username)
		}
	}

	// The order fixed at the 2->3 transition must survive every later
	// advance untouched.
	fixed := make([]SentenceEntry, len(after))
	copy(fixed, after)

	mustSetPhase(t, g, 4)

	for i, s := range store.state.Sentences {
		if s != fixed[i] {
			t.Fatalf("sentence order changed after 3->4 at index %d: %+v != %+v", i, s, fixed[i])
		}
	}
}

func TestSkippingIntoGuessingStillShuffles(t *testing.T) {
	g, store := newTestGame(t)

	mustRegister(t, g, "a", "A")
	mustRegister(t, g, "b", "B")
	mustSetPhase(t, g, 2)
	if err := g.SubmitSentence("a", "one"); err != nil {
		t.Fatal(err)
	}
	if err := g.SubmitSentence("b", "two"); err != nil {
		t.Fatal(err)
	}

	// 2 -> 4 crosses phase 3, so the shuffle side effect still applies.
	mustSetPhase(t, g, 4)

	got := sentenceTexts(store.state.Sentences)
	if got["a"] != "one" || got["b"] != "two" {
		t.Fatalf("sentences corrupted: %+v", got)
	}
}

func TestSubmitSentence(t *testing.T) {
	g, store := newTestGame(t)

	mustRegister(t, g, "alice", "Alice")
	mustRegister(t, g, "bob", "Bob")

	err := g.SubmitSentence("alice", "too early")
	wantKind(t, err, KindPhaseOrder)

	mustSetPhase(t, g, 2)

	err = g.SubmitSentence("alice", "   ")
	wantKind(t, err, KindValidation)
	if len(store.state.Sentences) != 0 {
		t.Fatal("failed validation mutated state")
	}

	if err := g.SubmitSentence("alice", "  first  "); err != nil {
		t.Fatal(err)
	}
	if err := g.SubmitSentence("bob", "second"); err != nil {
		t.Fatal(err)
	}
	if err := g.SubmitSentence("alice", "revised"); err != nil {
		t.Fatal(err)
	}

	if len(store.state.Sentences) != 2 {
		t.Fatalf("sentence count = %d, want 2", len(store.state.Sentences))
	}
	// Resubmission keeps the original position and trims text.
	if got := store.state.Sentences[0]; got.Username != "alice" || got.Text != "revised" {
		t.Fatalf("first entry = %+v", got)
	}
	if got := store.state.Sentences[1]; got.Username != "bob" || got.Text != "second" {
		t.Fatalf("second entry = %+v", got)
	}

	mustSetPhase(t, g, 3)
	err = g.SubmitSentence("alice", "too late")
	wantKind(t, err, KindPhaseOrder)
}

func TestSubmitGuesses(t *testing.T) {
	g, store := newTestGame(t)

	mustRegister(t, g, "alice", "Alice")
	mustSetPhase(t, g, 2)

	err := g.SubmitGuesses("alice", map[string]string{"bob": "x"})
	wantKind(t, err, KindPhaseOrder)

	mustSetPhase(t, g, 3)

	err = g.SubmitGuesses("alice", nil)
	wantKind(t, err, KindValidation)

	// Arbitrary keys are accepted; scoring sorts out mismatches.
	if err := g.SubmitGuesses("alice", map[string]string{"ghost": "boo"}); err != nil {
		t.Fatal(err)
	}
	if err := g.SubmitGuesses("alice", map[string]string{"bob": "two"}); err != nil {
		t.Fatal(err)
	}

	if len(store.state.Guesses) != 1 {
		t.Fatalf("guess count = %d, want 1", len(store.state.Guesses))
	}
	got := store.state.Guesses[0]
	if got.GuesserUsername != "alice" {
		t.Fatalf("guesser = %q", got.GuesserUsername)
	}
	if len(got.GuessMap) != 1 || got.GuessMap["bob"] != "two" {
		t.Fatalf("resubmission did not replace map: %+v", got.GuessMap)
	}

	mustSetPhase(t, g, 4)
	err = g.SubmitGuesses("alice", map[string]string{"bob": "two"})
	wantKind(t, err, KindPhaseOrder)
}

func TestReset(t *testing.T) {
	g, store := newTestGame(t)

	mustRegister(t, g, "alice", "Alice")
	mustSetPhase(t, g, 2)
	if err := g.SubmitSentence("alice", "hello"); err != nil {
		t.Fatal(err)
	}
	mustSetPhase(t, g, 4)

	if err := g.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	state := store.state
	if state.Phase != phaseRegistration {
		t.Fatalf("phase after reset = %d", state.Phase)
	}
	if len(state.Users) != 0 || len(state.Sentences) != 0 || len(state.Guesses) != 0 {
		t.Fatalf("collections not empty after reset: %+v", state)
	}
}

func TestPhaseChangeNotifications(t *testing.T) {
	g, _ := newTestGame(t)

	var notified []int
	g.OnPhaseChange(func(phase int) {
		notified = append(notified, phase)
	})

	mustSetPhase(t, g, 2)
	if _, err := g.SetPhase(2); err == nil {
		t.Fatal("re-entry should fail")
	}
	mustSetPhase(t, g, 3)
	if err := g.Reset(); err != nil {
		t.Fatal(err)
	}

	want := []int{2, 3, 1}
	if len(notified) != len(want) {
		t.Fatalf("notifications = %v, want %v", notified, want)
	}
	for i := range want {
		if notified[i] != want[i] {
			t.Fatalf("notifications = %v, want %v", notified, want)
		}
	}
}

func TestStorageFailuresSurface(t *testing.T) {
	g, store := newTestGame(t)
	mustRegister(t, g, "alice", "Alice")
	mustSetPhase(t, g, 2)

	store.saveErr = storageError("disk full", nil)
	err := g.SubmitSentence("alice", "hello")
	wantKind(t, err, KindStorage)

	store.saveErr = nil
	store.loadErr = storageError("unreadable", nil)
	_, err = g.Phase()
	wantKind(t, err, KindStorage)
}

func TestShuffleSentences(t *testing.T) {
	in := []SentenceEntry{
		{Username: "a", Text: "1"},
		{Username: "b", Text: "2"},
		{Username: "c", Text: "3"},
	}
	orig := make([]SentenceEntry, len(in))
	copy(orig, in)

	out := shuffleSentences(in)

	if len(out) != len(in) {
		t.Fatalf("length changed: %d", len(out))
	}
	for i := range in {
		if in[i] != orig[i] {
			t.Fatal("input slice was mutated")
		}
	}

	seen := make(map[SentenceEntry]bool, len(out))
	for _, s := range out {
		seen[s] = true
	}
	for _, s := range orig {
		if !seen[s] {
			t.Fatalf("entry %+v missing after shuffle", s)
		}
	}
}
