package main

import (
	"strings"
	"sync"
)

// Game phases. The game only ever moves forward through these.
const (
	phaseRegistration = 1
	phaseSubmission   = 2
	phaseGuessing     = 3
	phaseResults      = 4
)

// GameState is the single persisted document. Sentence order is insertion
// order until the guessing phase opens, after which it is the fixed
// shuffled order.
type GameState struct {
	Phase     int             `json:"phase"`
	Users     []User          `json:"users"`
	Sentences []SentenceEntry `json:"sentences"`
	Guesses   []GuessEntry    `json:"guesses"`
}

type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type SentenceEntry struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

type GuessEntry struct {
	GuesserUsername string            `json:"guesserUsername"`
	GuessMap        map[string]string `json:"guessMap"`
}

// Identity is the caller identity resolved by the HTTP layer before it
// invokes the core. A zero Identity means "not logged in".
type Identity struct {
	Username string
	Admin    bool
}

// SentenceGame runs one global game on top of a Store. Every operation is
// load-mutate-save under a single mutex, so the store stays the sole
// source of truth and writers never interleave.
type SentenceGame struct {
	store   Store
	mu      sync.Mutex
	onPhase func(phase int)
}

func NewSentenceGame(store Store) *SentenceGame {
	return &SentenceGame{store: store}
}

// OnPhaseChange registers a callback invoked after every successful phase
// change or reset. Called without the game lock held.
func (g *SentenceGame) OnPhaseChange(fn func(phase int)) {
	g.onPhase = fn
}

func (g *SentenceGame) notify(phase int) {
	if g.onPhase != nil {
		g.onPhase(phase)
	}
}

// Phase returns the current phase.
func (g *SentenceGame) Phase() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Load()
	if err != nil {
		return 0, err
	}
	return state.Phase, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func findUser(state *GameState, username string) (User, bool) {
	for _, u := range state.Users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

// Register creates a new student. Only valid while registration is open;
// usernames are lowercase-normalized and must be unique.
func (g *SentenceGame) Register(username, displayName, password string) (User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Load()
	if err != nil {
		return User{}, err
	}

	if state.Phase != phaseRegistration {
		return User{}, phaseOrderError("Registration is closed")
	}

	username = normalizeUsername(username)
	displayName = strings.TrimSpace(displayName)
	if username == "" || displayName == "" || password == "" {
		return User{}, validationError("All fields are required")
	}

	if _, taken := findUser(state, username); taken {
		return User{}, duplicateError("Username already taken")
	}

	user := User{
		Username:    username,
		DisplayName: displayName,
		Password:    password,
	}
	state.Users = append(state.Users, user)

	if err := g.store.Save(state); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login checks a student's credentials. Username lookup is
// case-insensitive; the password compare is exact.
func (g *SentenceGame) Login(username, password string) (User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if strings.TrimSpace(username) == "" || password == "" {
		return User{}, validationError("Username and password required")
	}

	state, err := g.store.Load()
	if err != nil {
		return User{}, err
	}

	user, ok := findUser(state, normalizeUsername(username))
	if !ok || user.Password != password {
		return User{}, authError("Invalid username or password")
	}
	return user, nil
}

// UserInfo looks up a registered user, for session introspection.
func (g *SentenceGame) UserInfo(username string) (User, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Load()
	if err != nil {
		return User{}, false, err
	}
	user, ok := findUser(state, username)
	return user, ok, err
}

// SubmitSentence records a student's sentence while submission is open.
// Resubmission overwrites the existing entry in place, preserving its
// position.
func (g *SentenceGame) SubmitSentence(username, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Load()
	if err != nil {
		return err
	}

	if state.Phase != phaseSubmission {
		return phaseOrderError("Sentence submission is not open")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return validationError("Sentence cannot be empty")
	}

	updated := false
	for i := range state.Sentences {
		if state.Sentences[i].Username == username {
			state.Sentences[i].Text = text
			updated = true
			break
		}
	}
	if !updated {
		state.Sentences = append(state.Sentences, SentenceEntry{
			Username: username,
			Text:     text,
		})
	}

	return g.store.Save(state)
}

// SubmitGuesses records a student's complete guess map while guessing is
// open. Resubmission replaces the previous map. Keys are not checked
// against registered users; scoring treats unknown keys as simple misses.
func (g *SentenceGame) SubmitGuesses(username string, guessMap map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Load()
	if err != nil {
		return err
	}

	if state.Phase != phaseGuessing {
		return phaseOrderError("Guessing phase is not open")
	}

	if guessMap == nil {
		return validationError("Invalid guesses")
	}

	updated := false
	for i := range state.Guesses {
		if state.Guesses[i].GuesserUsername == username {
			state.Guesses[i].GuessMap = guessMap
			updated = true
			break
		}
	}
	if !updated {
		state.Guesses = append(state.Guesses, GuessEntry{
			GuesserUsername: username,
			GuessMap:        guessMap,
		})
	}

	return g.store.Save(state)
}

// SetPhase advances the game to a strictly later phase. Crossing into the
// guessing phase shuffles the sentences, exactly once; later advances
// leave the order alone.
func (g *SentenceGame) SetPhase(target int) (int, error) {
	g.mu.Lock()

	state, err := g.store.Load()
	if err != nil {
		g.mu.Unlock()
		return 0, err
	}

	if target < phaseRegistration || target > phaseResults {
		g.mu.Unlock()
		return 0, invalidPhaseError("Phase must be 1-4")
	}
	if target <= state.Phase {
		g.mu.Unlock()
		return 0, phaseOrderError("Can only advance to a later phase")
	}

	if target >= phaseGuessing && state.Phase < phaseGuessing {
		state.Sentences = shuffleSentences(state.Sentences)
	}
	state.Phase = target

	if err := g.store.Save(state); err != nil {
		g.mu.Unlock()
		return 0, err
	}

	g.mu.Unlock()
	g.notify(target)
	return target, nil
}

// Reset unconditionally restores the empty phase-1 document.
func (g *SentenceGame) Reset() error {
	g.mu.Lock()

	if err := g.store.Save(defaultState()); err != nil {
		g.mu.Unlock()
		return err
	}

	g.mu.Unlock()
	g.notify(phaseRegistration)
	return nil
}
