package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// Store persists the full game state as a single document. Load on an
// empty backend initializes and persists defaults. Save fully overwrites
// prior content; callers never see partial writes.
type Store interface {
	Load() (*GameState, error)
	Save(*GameState) error
}

func defaultState() *GameState {
	return &GameState{
		Phase:     phaseRegistration,
		Users:     []User{},
		Sentences: []SentenceEntry{},
		Guesses:   []GuessEntry{},
	}
}

// FileStore keeps the game state in a pretty-printed JSON file. Writes go
// to a temp file first and are renamed into place, so a concurrent reader
// never observes a half-written document.
type FileStore struct {
	path       string
	recoveries int
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Load() (*GameState, error) {
	raw, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		state := defaultState()
		if err := fs.Save(state); err != nil {
			return nil, err
		}
		return state, nil
	}
	if err != nil {
		return nil, storageError("reading game state", err)
	}

	state := &GameState{}
	if err := json.Unmarshal(raw, state); err != nil {
		return fs.recover(err)
	}
	if state.Phase < phaseRegistration || state.Phase > phaseResults {
		return fs.recover(fmt.Errorf("phase out of range: %d", state.Phase))
	}

	if state.Users == nil {
		state.Users = []User{}
	}
	if state.Sentences == nil {
		state.Sentences = []SentenceEntry{}
	}
	if state.Guesses == nil {
		state.Guesses = []GuessEntry{}
	}

	return state, nil
}

// recover handles an unreadable state file: the original is backed up
// beside the data file, then replaced with defaults. Lossy, so it logs
// unconditionally rather than through logf.
func (fs *FileStore) recover(cause error) (*GameState, error) {
	backup := fs.path + ".corrupt"
	if err := os.Rename(fs.path, backup); err != nil {
		return nil, storageError("backing up corrupt game state", err)
	}

	fs.recoveries++
	log.Printf("%s | STORE: Discarded corrupt game state (backed up to %s): %v",
		time.Now().Format(logDate), backup, cause)

	state := defaultState()
	if err := fs.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Recoveries reports how many times Load discarded a corrupt document.
func (fs *FileStore) Recoveries() int {
	return fs.recoveries
}

func (fs *FileStore) Save(state *GameState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return storageError("encoding game state", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return storageError("writing game state", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return storageError("replacing game state", err)
	}

	return nil
}
