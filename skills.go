// Skill quiz game.
//
// Each round shows one ability icon of a random champion; players type the
// champion name and submit one of the four slots (Q/W/E/R). Both the
// champion and the slot must be right; a wrong champion and a wrong slot
// produce the same "incorrect" answer on purpose.
//
// Features:
// - WebSockets per game ID: /skills/:gameid and /skills/:gameid/ws
// - Everyone connected to a game shares one quiz session and its rounds
// - Champion detail data is fetched once per champion and cached per session
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Messages coming from clients
type quizClientMessage struct {
	Type     string `json:"type"`               // "guess", "next"
	Champion string `json:"champion,omitempty"` // guess
	Slot     string `json:"slot,omitempty"`     // guess: "Q", "W", "E" or "R"
}

// roundMessage announces a fresh round to every client.
type roundMessage struct {
	Type  string `json:"type"` // "round"
	Image string `json:"image"`
	Seq   uint64 `json:"seq"`
}

// resultMessage reports a guess outcome. Champion and slot correctness are
// merged into one flag.
type resultMessage struct {
	Type     string `json:"type"`    // "result"
	Correct  bool   `json:"correct"` // true if both champion and slot matched
	Champion string `json:"champion,omitempty"`
	Solved   int    `json:"solved"` // rounds solved this session
}

// quizErrorMessage is for inline input feedback and load failures.
type quizErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type quizClient struct {
	conn *websocket.Conn
	send chan any
}

type quizGuess struct {
	client *quizClient
	msg    quizClientMessage
}

// quizHub owns one shared quiz session. All session access happens on the
// run goroutine, so the engine itself needs no locking.
type quizHub struct {
	id      string
	clients map[*quizClient]bool

	register chan *quizClient
	unreg    chan *quizClient
	guesses  chan quizGuess
	nexts    chan *quizClient
	done     chan struct{}

	mu sync.RWMutex

	lastActive time.Time

	holder  *catalogHolder
	dd      *ddragon
	locale  string
	session *quizSession
	solved  int
	seq     uint64
}

func newQuizHub(gameID string, holder *catalogHolder, dd *ddragon, locale string) *quizHub {
	return &quizHub{
		id:         gameID,
		clients:    make(map[*quizClient]bool),
		register:   make(chan *quizClient),
		unreg:      make(chan *quizClient),
		guesses:    make(chan quizGuess),
		nexts:      make(chan *quizClient),
		done:       make(chan struct{}),
		lastActive: time.Now(),
		holder:     holder,
		dd:         dd,
		locale:     locale,
	}
}

func (h *quizHub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *quizHub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.touch()
			h.clients[c] = true

			// First connection (or first after a failed load) builds the
			// session and draws the opening round. A failed content load is
			// reported and retried only when the next client connects.
			if h.session == nil {
				if err := h.startSession(cfg); err != nil {
					c.send <- quizErrorMessage{
						Type:    "error",
						Message: "Skill data could not be loaded. Check your connection and reload the page.",
					}
					continue
				}
			}

			if h.session.round != nil {
				c.send <- roundMessage{
					Type:  "round",
					Image: h.session.round.ImageURL,
					Seq:   h.seq,
				}
			}

		case c := <-h.unreg:
			h.touch()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case g := <-h.guesses:
			h.handleGuess(cfg, g)

		case c := <-h.nexts:
			h.handleNext(cfg, c)

		case <-h.done:
			for c := range h.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(h.clients, c)
			}
			return
		}
	}
}

func (h *quizHub) startSession(cfg *Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	catalog, err := h.holder.get(ctx)
	if err != nil {
		logf(cfg, "GAMES: Skill session %s failed to load catalog: %v", h.id, err)
		return err
	}

	h.session = newQuizSession(catalog, h.dd, h.locale)

	if err := h.drawRound(cfg); err != nil {
		// A session without an opening round is unplayable. Drop it so
		// the next connection rebuilds the session and redraws.
		h.session = nil
		return err
	}

	return nil
}

func (h *quizHub) drawRound(cfg *Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	round, err := h.session.nextRound(ctx)
	if err != nil {
		logf(cfg, "GAMES: Skill session %s failed to draw a round: %v", h.id, err)
		return err
	}

	h.seq++
	logf(cfg, "GAMES: Skill session %s drew %s %s", h.id, round.ChampionID, slotLetters[round.Slot])

	h.broadcast(roundMessage{
		Type:  "round",
		Image: round.ImageURL,
		Seq:   h.seq,
	})

	return nil
}

func slotIndex(letter string) int {
	switch strings.ToUpper(letter) {
	case "Q":
		return 0
	case "W":
		return 1
	case "E":
		return 2
	case "R":
		return 3
	}
	return -1
}

func (h *quizHub) handleGuess(cfg *Config, g quizGuess) {
	h.touch()

	if h.session == nil || h.session.round == nil {
		return
	}

	slot := slotIndex(g.msg.Slot)
	if slot < 0 {
		return
	}

	correct, err := h.session.submit(g.msg.Champion, slot)
	switch {
	case err == errEmptyGuess:
		h.sendTo(g.client, quizErrorMessage{
			Type:    "error",
			Message: "Enter a champion name.",
		})
		return
	case err == errUnknownChampion:
		h.sendTo(g.client, quizErrorMessage{
			Type:    "error",
			Message: "No champion matches that name.",
		})
		return
	}

	result := resultMessage{
		Type:    "result",
		Correct: correct,
		Solved:  h.solved,
	}

	if correct {
		h.solved++
		result.Solved = h.solved
		result.Champion = h.session.round.Name
		logf(cfg, "GAMES: Skill session %s solved %s (%d total)", h.id, h.session.round.ChampionID, h.solved)
	}

	h.broadcast(result)
}

func (h *quizHub) handleNext(cfg *Config, c *quizClient) {
	h.touch()

	// Next round only advances from a solved state; an active round keeps
	// accepting guesses instead.
	if h.session == nil || !h.session.solved {
		return
	}

	if err := h.drawRound(cfg); err != nil {
		h.sendTo(c, quizErrorMessage{
			Type:    "error",
			Message: "The next round could not be loaded. Try again.",
		})
	}
}

func (h *quizHub) sendTo(c *quizClient, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *quizHub) broadcast(msg any) {
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// closeAll stops the hub's run loop, which disconnects all clients
// (used by the reaper). The clients map is only ever touched on that loop.
func (h *quizHub) closeAll() {
	close(h.done)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// quizManager holds a set of hubs keyed by game ID, so each /skills/:gameid
// is its own isolated session.
type quizManager struct {
	mu          sync.Mutex
	hubs        map[string]*quizHub
	idleTimeout time.Duration

	holder *catalogHolder
	dd     *ddragon
	locale string
}

func newQuizManager(idleTimeout time.Duration, holder *catalogHolder, dd *ddragon, locale string) *quizManager {
	qm := &quizManager{
		hubs:        make(map[string]*quizHub),
		idleTimeout: idleTimeout,
		holder:      holder,
		dd:          dd,
		locale:      locale,
	}
	if idleTimeout > 0 {
		go qm.reaperLoop()
	}
	return qm
}

func (qm *quizManager) getHub(cfg *Config, gameID string) *quizHub {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	if hub, ok := qm.hubs[gameID]; ok {
		return hub
	}

	hub := newQuizHub(gameID, qm.holder, qm.dd, qm.locale)
	qm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (qm *quizManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		qm.mu.Lock()
		_, exists := qm.hubs[id]
		qm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (qm *quizManager) reaperLoop() {
	ticker := time.NewTicker(qm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-qm.idleTimeout)

		qm.mu.Lock()
		for id, hub := range qm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(qm.hubs, id)
				go hub.closeAll()
			}
		}
		qm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveQuizWS(cfg *Config, qm *quizManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		hub := qm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Websocket upgrade failed: %v", err)
			return
		}

		client := &quizClient{
			conn: conn,
			send: make(chan any, 8),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *quizClient) readPump(h *quizHub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg quizClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "guess":
			select {
			case h.guesses <- quizGuess{client: c, msg: msg}:
			case <-h.done:
				return
			}
		case "next":
			select {
			case h.nexts <- c:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *quizClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, qm *quizManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := qm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerSkillGame sets up routes so that:
//   - $path             → redirects to new random game (8-char ID)
//   - $path/:gameid     → HTML client
//   - $path/:gameid/ws  → WebSocket for that game
//   - $path/:gameid/qr  → PNG QR code for that game URL
func registerSkillGame(cfg *Config, path string, mux *httprouter.Router, holder *catalogHolder, dd *ddragon) {
	qm := newQuizManager(cfg.sessionTimeout, holder, dd, cfg.locale)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, cfg.prefix+path, qm))

	mux.GET(cfg.prefix+path+"/:gameid", serveEmbeddedPage(cfg, "assets/skills/index.html"))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveQuizWS(cfg, qm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrShareHandler)
}
