// Champion guessing game.
//
// The full champion grid is rendered with names hidden (easy mode) or empty
// (hard mode, where solved champions appear newest-first as they are
// guessed). Guesses are matched server-side against Korean names, English
// names, internal ids, and punctuation-stripped variants. Progress is stored
// per player cookie, per content version, per mode, and survives restarts.
//
// Features:
// - JSON API: /champions/api/state, /champions/api/guess, /champions/api/reset
// - Players identified by cookie (playerID)
// - Easy mode: portraits shown, names revealed one by one
// - Hard mode: empty grid, solved cards prepended most-recent-first
// - In-browser QR button to share the game, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const playerCookieName = "lolguess_id"

const (
	modeEasy = "easy"
	modeHard = "hard"
)

func validMode(mode string) bool {
	return mode == modeEasy || mode == modeHard
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// championCard is one grid entry. Name fields are only filled in once the
// champion has been solved, so unsolved answers never reach the client.
type championCard struct {
	ID       string `json:"id"`
	Portrait string `json:"portrait"`
	Name     string `json:"name,omitempty"`
	AltName  string `json:"altName,omitempty"`
	Solved   bool   `json:"solved"`
}

type stateResponse struct {
	Version string         `json:"version"`
	Mode    string         `json:"mode"`
	Total   int            `json:"total"`
	Solved  int            `json:"solved"`
	Cards   []championCard `json:"cards"`
}

type guessRequest struct {
	Mode string `json:"mode"`
	Name string `json:"name"`
}

type guessResponse struct {
	Result  string        `json:"result"` // "correct", "already", "nomatch", "empty"
	Message string        `json:"message,omitempty"`
	Card    *championCard `json:"card,omitempty"`
	Solved  int           `json:"solved"`
	Total   int           `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeUnavailable(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"error": "Champion data could not be loaded. Check your connection and reload the page.",
		"cause": err.Error(),
	})
}

// solvedCard reveals a solved champion's names.
func solvedCard(champ Champion) championCard {
	return championCard{
		ID:       champ.ID,
		Portrait: champ.Portrait,
		Name:     champ.Name,
		AltName:  champ.AltName,
		Solved:   true,
	}
}

func serveChampionState(cfg *Config, holder *catalogHolder, store *progressStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		mode := r.URL.Query().Get("mode")
		if !validMode(mode) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown mode"})
			return
		}

		playerID := getOrSetPlayerID(w, r)

		catalog, err := holder.get(r.Context())
		if err != nil {
			writeUnavailable(w, err)
			return
		}

		record, _ := store.load(playerID, scopeKey(catalog.Version, mode))

		resp := stateResponse{
			Version: catalog.Version,
			Mode:    mode,
			Total:   len(catalog.Champions),
			Solved:  len(record.Guessed),
		}

		switch mode {
		case modeEasy:
			cards := make([]championCard, 0, len(catalog.Champions))
			for _, champ := range catalog.Champions {
				if record.Guessed[champ.ID] {
					cards = append(cards, solvedCard(champ))
					continue
				}
				cards = append(cards, championCard{
					ID:       champ.ID,
					Portrait: champ.Portrait,
				})
			}
			// Catalog order is sorted by id, so the grid is stable
			// across loads regardless of locale.
			resp.Cards = cards

		case modeHard:
			cards := make([]championCard, 0, len(record.Order))
			for _, id := range record.Order {
				champ, ok := catalog.championByID(id)
				if !ok {
					continue
				}
				cards = append(cards, solvedCard(champ))
			}
			resp.Cards = cards
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func serveChampionGuess(cfg *Config, holder *catalogHolder, store *progressStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		var req guessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validMode(req.Mode) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed guess"})
			return
		}

		playerID := getOrSetPlayerID(w, r)

		catalog, err := holder.get(r.Context())
		if err != nil {
			writeUnavailable(w, err)
			return
		}

		scope := scopeKey(catalog.Version, req.Mode)
		record, _ := store.load(playerID, scope)

		resp := guessResponse{
			Solved: len(record.Guessed),
			Total:  len(catalog.Champions),
		}

		id, err := catalog.resolve(req.Name)
		switch {
		case err == errEmptyGuess:
			resp.Result = "empty"
			resp.Message = "Enter a champion name."
			writeJSON(w, http.StatusOK, resp)
			return
		case err == errUnknownChampion:
			resp.Result = "nomatch"
			resp.Message = "No champion matches that name."
			writeJSON(w, http.StatusOK, resp)
			return
		}

		record, changed, err := store.solve(playerID, scope, id, req.Mode == modeHard)
		if err != nil {
			logf(cfg, "GAMES: Failed to save progress for %s: %v", playerID, err)
		}

		if !changed {
			resp.Result = "already"
			resp.Message = "Already guessed that champion."
			resp.Solved = len(record.Guessed)
			writeJSON(w, http.StatusOK, resp)
			return
		}

		champ, _ := catalog.championByID(id)
		card := solvedCard(champ)

		resp.Result = "correct"
		resp.Card = &card
		resp.Solved = len(record.Guessed)

		logf(cfg, "GAMES: Player %s guessed %q (%d/%d, %s)", playerID, id, resp.Solved, resp.Total, req.Mode)

		writeJSON(w, http.StatusOK, resp)
	}
}

func serveChampionReset(cfg *Config, holder *catalogHolder, store *progressStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)

		mode := r.URL.Query().Get("mode")
		if !validMode(mode) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown mode"})
			return
		}

		playerID := getOrSetPlayerID(w, r)

		catalog, err := holder.get(r.Context())
		if err != nil {
			writeUnavailable(w, err)
			return
		}

		if err := store.reset(playerID, scopeKey(catalog.Version, mode)); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reset failed"})
			return
		}

		logf(cfg, "GAMES: Player %s reset %s progress", playerID, mode)

		writeJSON(w, http.StatusOK, map[string]string{"result": "reset"})
	}
}

// qrShareHandler generates a PNG QR code for the current page URL
// (respecting TLS and X-Forwarded-Proto, and stripping the trailing "/qr").
func qrShareHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func serveEmbeddedPage(cfg *Config, name string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(data)
	}
}

// registerChampionGame sets up routes so that:
//   - $path           → HTML client
//   - $path/api/state → full grid + progress for one mode
//   - $path/api/guess → evaluate one guess
//   - $path/api/reset → clear one mode's progress
//   - $path/qr        → PNG QR code for the game URL
func registerChampionGame(cfg *Config, path string, mux *httprouter.Router, holder *catalogHolder, store *progressStore) {
	mux.GET(cfg.prefix+path, serveEmbeddedPage(cfg, "assets/champions/index.html"))

	mux.GET(cfg.prefix+path+"/api/state", serveChampionState(cfg, holder, store))

	mux.POST(cfg.prefix+path+"/api/guess", serveChampionGuess(cfg, holder, store))

	mux.POST(cfg.prefix+path+"/api/reset", serveChampionReset(cfg, holder, store))

	mux.GET(cfg.prefix+path+"/qr", qrShareHandler)
}
