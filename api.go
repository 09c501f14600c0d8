package main

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(cfg *Config, w http.ResponseWriter, status int, msg string) {
	writeJSON(cfg, w, status, errorResponse{Error: msg})
}

// writeGameError maps a core error to its wire status. Storage failures
// are not echoed back to the client.
func writeGameError(cfg *Config, w http.ResponseWriter, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logf(cfg, "ERROR: %v", err)
		msg = "Internal server error"
	}
	writeError(cfg, w, status, msg)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return validationError("Invalid request body")
	}
	return nil
}

type okResponse struct {
	Ok bool `json:"ok"`
}

func serveRegister(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			Username    string `json:"username"`
			DisplayName string `json:"displayName"`
			Password    string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeGameError(cfg, w, err)
			return
		}

		user, err := game.Register(req.Username, req.DisplayName, req.Password)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		if err := sessions.create(w, Identity{Username: user.Username}); err != nil {
			writeError(cfg, w, http.StatusInternalServerError, "Internal server error")
			return
		}

		logf(cfg, "GAME: Registered %q (%s) from %s", user.Username, user.DisplayName, realIP(r))
		writeJSON(cfg, w, http.StatusOK, okResponse{Ok: true})
	}
}

func serveLogin(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeGameError(cfg, w, err)
			return
		}

		user, err := game.Login(req.Username, req.Password)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		if err := sessions.create(w, Identity{Username: user.Username}); err != nil {
			writeError(cfg, w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(cfg, w, http.StatusOK, struct {
			Ok          bool   `json:"ok"`
			DisplayName string `json:"displayName"`
		}{Ok: true, DisplayName: user.DisplayName})
	}
}

func serveAdminLogin(cfg *Config, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeGameError(cfg, w, err)
			return
		}

		if req.Password != cfg.adminPassword {
			writeError(cfg, w, http.StatusUnauthorized, "Wrong admin password")
			return
		}

		if err := sessions.create(w, Identity{Admin: true}); err != nil {
			writeError(cfg, w, http.StatusInternalServerError, "Internal server error")
			return
		}

		logf(cfg, "GAME: Admin logged in from %s", realIP(r))
		writeJSON(cfg, w, http.StatusOK, okResponse{Ok: true})
	}
}

func serveLogout(cfg *Config, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sessions.drop(w, r)
		writeJSON(cfg, w, http.StatusOK, okResponse{Ok: true})
	}
}

func serveMe(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	type meResponse struct {
		LoggedIn    bool   `json:"loggedIn"`
		IsAdmin     bool   `json:"isAdmin,omitempty"`
		Username    string `json:"username,omitempty"`
		DisplayName string `json:"displayName,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id, ok := sessions.identity(r)
		if !ok {
			writeJSON(cfg, w, http.StatusOK, meResponse{LoggedIn: false})
			return
		}

		if id.Admin {
			writeJSON(cfg, w, http.StatusOK, meResponse{LoggedIn: true, IsAdmin: true})
			return
		}

		user, found, err := game.UserInfo(id.Username)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}
		if !found {
			// Stale session, e.g. after an admin reset.
			writeJSON(cfg, w, http.StatusOK, meResponse{LoggedIn: false})
			return
		}

		writeJSON(cfg, w, http.StatusOK, meResponse{
			LoggedIn:    true,
			Username:    user.Username,
			DisplayName: user.DisplayName,
		})
	}
}

func servePhase(cfg *Config, game *SentenceGame) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		phase, err := game.Phase()
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}
		writeJSON(cfg, w, http.StatusOK, struct {
			Phase int `json:"phase"`
		}{Phase: phase})
	}
}

// student resolves the request to a logged-in student identity, or writes
// the 401 itself and reports false.
func student(cfg *Config, sessions *sessionRegistry, w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := sessions.identity(r)
	if !ok || id.Username == "" {
		writeError(cfg, w, http.StatusUnauthorized, "Not logged in")
		return Identity{}, false
	}
	return id, true
}

// anyIdentity resolves any logged-in identity, student or admin.
func anyIdentity(cfg *Config, sessions *sessionRegistry, w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := sessions.identity(r)
	if !ok {
		writeError(cfg, w, http.StatusUnauthorized, "Not logged in")
		return Identity{}, false
	}
	return id, true
}

// admin resolves the request to an admin identity, or writes the 403
// itself and reports false.
func admin(cfg *Config, sessions *sessionRegistry, w http.ResponseWriter, r *http.Request) bool {
	id, ok := sessions.identity(r)
	if !ok || !id.Admin {
		writeError(cfg, w, http.StatusForbidden, "Not authorized")
		return false
	}
	return true
}

func serveSubmitSentence(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id, ok := student(cfg, sessions, w, r)
		if !ok {
			return
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeGameError(cfg, w, err)
			return
		}

		if err := game.SubmitSentence(id.Username, req.Text); err != nil {
			writeGameError(cfg, w, err)
			return
		}

		logf(cfg, "GAME: Sentence submitted by %q", id.Username)
		writeJSON(cfg, w, http.StatusOK, okResponse{Ok: true})
	}
}

func serveSentences(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if _, ok := anyIdentity(cfg, sessions, w, r); !ok {
			return
		}

		list, err := game.SentencesForGuessing()
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, list)
	}
}

func serveSubmitGuesses(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id, ok := student(cfg, sessions, w, r)
		if !ok {
			return
		}

		var req struct {
			GuessMap map[string]string `json:"guessMap"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(cfg, w, http.StatusBadRequest, "Invalid guesses")
			return
		}

		if err := game.SubmitGuesses(id.Username, req.GuessMap); err != nil {
			writeGameError(cfg, w, err)
			return
		}

		logf(cfg, "GAME: Guesses submitted by %q", id.Username)
		writeJSON(cfg, w, http.StatusOK, okResponse{Ok: true})
	}
}

func serveResults(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id, ok := anyIdentity(cfg, sessions, w, r)
		if !ok {
			return
		}

		results, err := game.Results(id)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, results)
	}
}

func serveAdminStatus(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if !admin(cfg, sessions, w, r) {
			return
		}

		status, err := game.Status()
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, status)
	}
}

func serveSetPhase(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if !admin(cfg, sessions, w, r) {
			return
		}

		var req struct {
			Phase *int `json:"phase"`
		}
		if err := decodeJSON(r, &req); err != nil || req.Phase == nil {
			writeError(cfg, w, http.StatusBadRequest, "Phase must be 1-4")
			return
		}

		phase, err := game.SetPhase(*req.Phase)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		logf(cfg, "GAME: Phase advanced to %d", phase)
		writeJSON(cfg, w, http.StatusOK, struct {
			Ok    bool `json:"ok"`
			Phase int  `json:"phase"`
		}{Ok: true, Phase: phase})
	}
}

func serveReset(cfg *Config, game *SentenceGame, sessions *sessionRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if !admin(cfg, sessions, w, r) {
			return
		}

		if err := game.Reset(); err != nil {
			writeGameError(cfg, w, err)
			return
		}

		logf(cfg, "GAME: Game reset by admin from %s", realIP(r))
		writeJSON(cfg, w, http.StatusOK, okResponse{Ok: true})
	}
}

// registerSentenceGame wires the whole game under the configured prefix.
func registerSentenceGame(cfg *Config, mux *httprouter.Router) {
	store := NewFileStore(cfg.dataFile)
	game := NewSentenceGame(store)
	sessions := newSessionRegistry()
	notifier := newPhaseNotifier()

	game.OnPhaseChange(notifier.broadcast)

	mux.POST(cfg.prefix+"/api/register", serveRegister(cfg, game, sessions))
	mux.POST(cfg.prefix+"/api/login", serveLogin(cfg, game, sessions))
	mux.POST(cfg.prefix+"/api/admin-login", serveAdminLogin(cfg, sessions))
	mux.POST(cfg.prefix+"/api/logout", serveLogout(cfg, sessions))
	mux.GET(cfg.prefix+"/api/me", serveMe(cfg, game, sessions))
	mux.GET(cfg.prefix+"/api/phase", servePhase(cfg, game))

	mux.POST(cfg.prefix+"/api/submit-sentence", serveSubmitSentence(cfg, game, sessions))
	mux.GET(cfg.prefix+"/api/sentences", serveSentences(cfg, game, sessions))
	mux.POST(cfg.prefix+"/api/submit-guesses", serveSubmitGuesses(cfg, game, sessions))
	mux.GET(cfg.prefix+"/api/results", serveResults(cfg, game, sessions))

	mux.GET(cfg.prefix+"/api/admin/status", serveAdminStatus(cfg, game, sessions))
	mux.POST(cfg.prefix+"/api/admin/set-phase", serveSetPhase(cfg, game, sessions))
	mux.POST(cfg.prefix+"/api/admin/reset", serveReset(cfg, game, sessions))

	mux.GET(cfg.prefix+"/api/events", servePhaseEvents(cfg, game, notifier))
	mux.GET(cfg.prefix+"/qr", qrHandler)
}
