package main

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Submitter identifies a student who turned in a sentence.
type Submitter struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// SentenceList is what guessers work from: anonymous sentence texts in
// their fixed shuffled order, and separately the submitters sorted by
// display name. The two carry no positional association with each other.
type SentenceList struct {
	Sentences []string    `json:"sentences"`
	Students  []Submitter `json:"students"`
}

type ScoreRow struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

type AnswerRow struct {
	DisplayName string `json:"displayName"`
	Sentence    string `json:"sentence"`
}

type ResultsView struct {
	Scoreboard    []ScoreRow  `json:"scoreboard"`
	TotalPossible int         `json:"totalPossible"`
	MyScore       int         `json:"myScore"`
	AnswerKey     []AnswerRow `json:"answerKey"`
}

func displayNameFor(state *GameState, username string) string {
	if user, ok := findUser(state, username); ok {
		return user.DisplayName
	}
	return username
}

// SentencesForGuessing returns the guessing material. Only valid once the
// guessing phase has opened, so the stored order is already shuffled.
func (g *SentenceGame) SentencesForGuessing() (*SentenceList, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Load()
	if err != nil {
		return nil, err
	}

	if state.Phase < phaseGuessing {
		return nil, phaseOrderError("Guessing phase has not started")
	}

	list := &SentenceList{
		Sentences: make([]string, 0, len(state.Sentences)),
		Students:  make([]Submitter, 0, len(state.Sentences)),
	}
	for _, s := range state.Sentences {
		list.Sentences = append(list.Sentences, s.Text)
		list.Students = append(list.Students, Submitter{
			Username:    s.Username,
			DisplayName: displayNameFor(state, s.Username),
		})
	}

	coll := collate.New(language.Und)
	sort.SliceStable(list.Students, func(i, j int) bool {
		return coll.CompareString(list.Students[i].DisplayName, list.Students[j].DisplayName) < 0
	})

	return list, nil
}

// Results scores the finished game for the given viewer. Only valid once
// the results phase has opened.
func (g *SentenceGame) Results(viewer Identity) (*ResultsView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Load()
	if err != nil {
		return nil, err
	}

	if state.Phase < phaseResults {
		return nil, phaseOrderError("Results are not available yet")
	}

	return buildResults(state, viewer), nil
}

// buildResults computes the scoreboard and answer key. Every registered
// user gets a row, guesses or not. A guess scores when it exactly matches
// the author's sentence; guessing your own sentence never counts.
func buildResults(state *GameState, viewer Identity) *ResultsView {
	answerKey := make(map[string]string, len(state.Sentences))
	for _, s := range state.Sentences {
		answerKey[s.Username] = s.Text
	}

	guessesByUser := make(map[string]map[string]string, len(state.Guesses))
	for _, entry := range state.Guesses {
		guessesByUser[entry.GuesserUsername] = entry.GuessMap
	}

	scoreboard := make([]ScoreRow, 0, len(state.Users))
	for _, user := range state.Users {
		score := 0
		for target, guessed := range guessesByUser[user.Username] {
			if target == user.Username {
				continue
			}
			if text, ok := answerKey[target]; ok && text == guessed {
				score++
			}
		}
		scoreboard = append(scoreboard, ScoreRow{
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Score:       score,
		})
	}

	// Ties keep registration order.
	sort.SliceStable(scoreboard, func(i, j int) bool {
		return scoreboard[i].Score > scoreboard[j].Score
	})

	reveal := make([]AnswerRow, 0, len(state.Sentences))
	for _, s := range state.Sentences {
		reveal = append(reveal, AnswerRow{
			DisplayName: displayNameFor(state, s.Username),
			Sentence:    s.Text,
		})
	}

	myScore := 0
	for _, row := range scoreboard {
		if row.Username == viewer.Username {
			myScore = row.Score
			break
		}
	}

	return &ResultsView{
		Scoreboard:    scoreboard,
		TotalPossible: len(state.Sentences) - 1,
		MyScore:       myScore,
		AnswerKey:     reveal,
	}
}

// StatusUser summarizes one student's progress for the admin console.
type StatusUser struct {
	DisplayName string `json:"displayName"`
	HasSentence bool   `json:"hasSentence"`
	HasGuessed  bool   `json:"hasGuessed"`
}

type StatusView struct {
	Phase         int          `json:"phase"`
	UserCount     int          `json:"userCount"`
	SentenceCount int          `json:"sentenceCount"`
	GuessCount    int          `json:"guessCount"`
	Users         []StatusUser `json:"users"`
}

// Status reports game progress for the admin console, valid in any phase.
func (g *SentenceGame) Status() (*StatusView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.store.Load()
	if err != nil {
		return nil, err
	}

	submitted := make(map[string]bool, len(state.Sentences))
	for _, s := range state.Sentences {
		submitted[s.Username] = true
	}
	guessed := make(map[string]bool, len(state.Guesses))
	for _, entry := range state.Guesses {
		guessed[entry.GuesserUsername] = true
	}

	view := &StatusView{
		Phase:         state.Phase,
		UserCount:     len(state.Users),
		SentenceCount: len(state.Sentences),
		GuessCount:    len(state.Guesses),
		Users:         make([]StatusUser, 0, len(state.Users)),
	}
	for _, user := range state.Users {
		view.Users = append(view.Users, StatusUser{
			DisplayName: user.DisplayName,
			HasSentence: submitted[user.Username],
			HasGuessed:  guessed[user.Username],
		})
	}

	return view, nil
}
