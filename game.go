// Phylo Solver Game
//
// Each game is a shared solving session against the taxonomy tree. The
// server proposes the species guess that minimizes the worst-case number of
// surviving candidates, and everyone connected feeds back the clade the real
// game revealed. The candidate list narrows round by round until the answer
// is confirmed or the feedback contradicts the tree.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - Sessions can be restricted to a clade and seeded with excluded species
// - Feedback accepts common or scientific names, typed or clicked
// - Players may report a guess of their own instead of the proposed one
// - Off-path mode lets the solver propose already-eliminated species
// - Clients identified by cookie (playerID), for log attribution
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/phylo/taxonomy"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type       string `json:"type"`                 // "configure", "feedback", "correct", "restart"
	Clade      string `json:"clade,omitempty"`      // configure / feedback
	Guess      string `json:"guess,omitempty"`      // feedback / correct, overrides the proposed guess
	Exclusions string `json:"exclusions,omitempty"` // configure, comma-separated species
	OffPath    bool   `json:"off_path,omitempty"`   // configure
}

// SessionInfoMessage is sent immediately on connect so the client knows
// which game and dataset it is talking to.
type SessionInfoMessage struct {
	Type    string `json:"type"` // "session_info"
	GameID  string `json:"game_id"`
	Root    string `json:"root"`
	Taxa    int    `json:"taxa"`
	Species int    `json:"species"`
}

// SpeciesLabel pairs a scientific name with its common name for display.
type SpeciesLabel struct {
	Scientific string `json:"scientific"`
	Common     string `json:"common"`
}

// BucketView describes one feedback outcome for the proposed guess: the
// clade the game would reveal and how many candidates would survive it.
type BucketView struct {
	Clade  string `json:"clade"`
	Common string `json:"common"`
	Size   int    `json:"size"`
}

// GuessView is the proposed guess plus its worst-case partition.
type GuessView struct {
	Scientific string       `json:"scientific"`
	Common     string       `json:"common"`
	WorstCase  int          `json:"worst_case"`
	Buckets    []BucketView `json:"buckets"`
}

// RoundView is one line of the play history.
type RoundView struct {
	Guess       string `json:"guess"`
	GuessCommon string `json:"guess_common"`
	Clade       string `json:"clade,omitempty"`
	CladeCommon string `json:"clade_common,omitempty"`
	Correct     bool   `json:"correct"`
}

// SettingsView echoes the active session configuration.
type SettingsView struct {
	Clade      string   `json:"clade,omitempty"`
	Exclusions []string `json:"exclusions,omitempty"`
	OffPath    bool     `json:"off_path"`
}

// GameStateMessage broadcasts the full solving state after every action.
type GameStateMessage struct {
	Type           string         `json:"type"` // "game_state"
	State          string         `json:"state"`
	Rounds         int            `json:"rounds"`
	CandidateCount int            `json:"candidate_count"`
	Candidates     []SpeciesLabel `json:"candidates"`
	Guess          *GuessView     `json:"guess,omitempty"`
	Answer         string         `json:"answer,omitempty"`
	Settings       SettingsView   `json:"settings"`
	History        []RoundView    `json:"history"`
}

// SimpleMessage is for generic notifications ("notice", "problem").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type clientCommand struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id string
	ds *dataset

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	cmds     chan clientCommand

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time

	clade      string
	exclusions []string
	offPath    bool

	session *taxonomy.Session
	guess   taxonomy.Guess
	hasNext bool
}

func newHub(ds *dataset, gameID string) *Hub {
	now := time.Now()

	h := &Hub{
		id:         gameID,
		ds:         ds,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		cmds:       make(chan clientCommand),
		createdAt:  now,
		lastActive: now,
	}

	// A session over the full tree always has candidates, so this can only
	// fail if the dataset is unusable, which startup already rejects.
	_ = h.resetSessionLocked()

	return h
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			c.send <- SessionInfoMessage{
				Type:    "session_info",
				GameID:  h.id,
				Root:    h.ds.tree.Name(h.ds.tree.Root()),
				Taxa:    h.ds.tree.Len(),
				Species: len(h.ds.tree.Leaves()),
			}
			c.send <- h.stateMessageLocked()

			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case cmd := <-h.cmds:
			h.handleCommand(cfg, cmd)
		}
	}
}

// resetSessionLocked rebuilds the session from the hub's current settings
// and proposes the opening guess. On error the previous session, if any,
// stays in place.
func (h *Hub) resetSessionLocked() error {
	var opts []taxonomy.SessionOption

	if h.clade != "" {
		opts = append(opts, taxonomy.WithClade(h.clade))
	}
	if len(h.exclusions) > 0 {
		opts = append(opts, taxonomy.WithExclusions(h.exclusions...))
	}
	if h.offPath {
		opts = append(opts, taxonomy.WithOffPathGuesses())
	}

	session, err := taxonomy.NewSession(h.ds.tree, opts...)
	if err != nil {
		return err
	}

	h.session = session
	h.refreshGuessLocked()

	return nil
}

func (h *Hub) refreshGuessLocked() {
	guess, err := h.session.NextGuess()

	h.hasNext = err == nil
	h.guess = guess
}

// currentGuessLocked resolves the species a feedback or correct message
// refers to: an explicit override when given, the proposed guess otherwise.
func (h *Hub) currentGuessLocked(override string) (taxonomy.NodeID, error) {
	if override != "" {
		return h.ds.resolveSpecies(override)
	}

	if !h.hasNext {
		return taxonomy.NoNode, errors.New("no guess is currently proposed")
	}

	return h.guess.Species, nil
}

func (h *Hub) handleCommand(cfg *Config, cmd clientCommand) {
	c := cmd.client
	msg := cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	switch msg.Type {
	case "configure":
		clade := strings.TrimSpace(msg.Clade)
		if clade != "" {
			id, err := h.ds.resolveClade(clade)
			if err != nil {
				h.sendProblemLocked(c, err.Error())

				return
			}

			clade = h.ds.tree.Name(id)
		}

		previousClade, previousExclusions, previousOffPath := h.clade, h.exclusions, h.offPath

		h.clade = clade
		h.exclusions = splitSpeciesList(h.ds, msg.Exclusions)
		h.offPath = msg.OffPath

		if err := h.resetSessionLocked(); err != nil {
			h.clade, h.exclusions, h.offPath = previousClade, previousExclusions, previousOffPath
			h.sendProblemLocked(c, err.Error())

			return
		}

		logf(cfg, "GAMES: %s configured %s (clade %q, %d exclusions)",
			shortID(c.playerID), h.id, h.clade, len(h.exclusions))

		h.broadcastNoticeLocked("Session configured.")
		h.broadcastStateLocked()

	case "feedback":
		guess, err := h.currentGuessLocked(msg.Guess)
		if err != nil {
			h.sendProblemLocked(c, err.Error())

			return
		}

		clade, err := h.ds.resolveClade(msg.Clade)
		if err != nil {
			h.sendProblemLocked(c, err.Error())

			return
		}

		err = h.session.ApplyFeedback(guess, clade)

		switch {
		case errors.Is(err, taxonomy.ErrInconsistentFeedback):
			logf(cfg, "GAMES: %s failed %s: %v", shortID(c.playerID), h.id, err)
			h.hasNext = false
			h.broadcastNoticeLocked("That feedback eliminates every candidate. The session is over.")

		case errors.Is(err, taxonomy.ErrSessionOver):
			h.sendProblemLocked(c, "This session has already ended.")

			return

		case err != nil:
			h.sendProblemLocked(c, err.Error())

			return

		default:
			logf(cfg, "GAMES: %s narrowed %s to %d candidates via %q",
				shortID(c.playerID), h.id, len(h.session.Candidates()), h.ds.tree.Name(clade))
			h.refreshGuessLocked()
		}

		h.broadcastStateLocked()

	case "correct":
		guess, err := h.currentGuessLocked(msg.Guess)
		if err != nil {
			h.sendProblemLocked(c, err.Error())

			return
		}

		if err := h.session.ApplyCorrect(guess); err != nil {
			h.sendProblemLocked(c, "This session has already ended.")

			return
		}

		logf(cfg, "GAMES: %s solved %s: %q after %d rounds",
			shortID(c.playerID), h.id, h.ds.tree.Name(guess), h.session.Rounds())

		h.hasNext = false
		h.broadcastNoticeLocked("Solved: " + h.ds.names.Label(h.ds.tree.Name(guess)))
		h.broadcastStateLocked()

	case "restart":
		if err := h.resetSessionLocked(); err != nil {
			h.sendProblemLocked(c, err.Error())

			return
		}

		logf(cfg, "GAMES: %s restarted %s", shortID(c.playerID), h.id)

		h.broadcastNoticeLocked("Session restarted.")
		h.broadcastStateLocked()
	}
}

// stateMessageLocked flattens the session into the wire shape.
func (h *Hub) stateMessageLocked() GameStateMessage {
	tree, names := h.ds.tree, h.ds.names

	candidates := h.session.Candidates()

	labels := make([]SpeciesLabel, 0, len(candidates))
	for _, id := range candidates {
		labels = append(labels, SpeciesLabel{
			Scientific: tree.Name(id),
			Common:     names.Common(tree.Name(id)),
		})
	}

	sort.Slice(labels, func(i, j int) bool {
		return labels[i].Common < labels[j].Common
	})

	var guessView *GuessView
	if h.hasNext {
		buckets := make([]BucketView, 0, len(h.guess.Buckets))
		for clade, members := range h.guess.Buckets {
			buckets = append(buckets, BucketView{
				Clade:  tree.Name(clade),
				Common: names.Common(tree.Name(clade)),
				Size:   len(members),
			})
		}

		sort.Slice(buckets, func(i, j int) bool {
			if buckets[i].Size != buckets[j].Size {
				return buckets[i].Size > buckets[j].Size
			}
			return buckets[i].Clade < buckets[j].Clade
		})

		guessView = &GuessView{
			Scientific: tree.Name(h.guess.Species),
			Common:     names.Common(tree.Name(h.guess.Species)),
			WorstCase:  h.guess.WorstCase,
			Buckets:    buckets,
		}
	}

	history := h.session.History()

	rounds := make([]RoundView, 0, len(history))
	for _, round := range history {
		view := RoundView{
			Guess:       tree.Name(round.Guess),
			GuessCommon: names.Common(tree.Name(round.Guess)),
			Correct:     round.Correct,
		}
		if round.Clade != taxonomy.NoNode {
			view.Clade = tree.Name(round.Clade)
			view.CladeCommon = names.Common(tree.Name(round.Clade))
		}

		rounds = append(rounds, view)
	}

	settings := SettingsView{
		OffPath: h.offPath,
	}
	if h.session.Clade() != tree.Root() {
		settings.Clade = tree.Name(h.session.Clade())
	}
	for _, name := range h.exclusions {
		settings.Exclusions = append(settings.Exclusions, names.Common(name))
	}

	msg := GameStateMessage{
		Type:           "game_state",
		State:          h.session.State().String(),
		Rounds:         h.session.Rounds(),
		CandidateCount: len(candidates),
		Candidates:     labels,
		Guess:          guessView,
		Settings:       settings,
		History:        rounds,
	}

	if h.session.State() == taxonomy.StateSolved && len(history) > 0 {
		msg.Answer = tree.Name(history[len(history)-1].Guess)
	}

	return msg
}

func (h *Hub) broadcastStateLocked() {
	msg := h.stateMessageLocked()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) broadcastNoticeLocked(text string) {
	msg := SimpleMessage{
		Type:    "notice",
		Message: text,
	}

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// sendProblemLocked reports a rejected command to the offending client only.
func (h *Hub) sendProblemLocked(c *Client, text string) {
	select {
	case c.send <- SimpleMessage{
		Type:    "problem",
		Message: text,
	}:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

// splitSpeciesList turns comma-separated player input into scientific
// names, passing through names the mapping doesn't know so the session can
// reject them with context.
func splitSpeciesList(ds *dataset, raw string) []string {
	var names []string

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		scientific, _ := ds.names.Scientific(part)
		names = append(names, scientific)
	}

	return names
}

func shortID(playerID string) string {
	if len(playerID) > 8 {
		return playerID[:8]
	}

	return playerID
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "phylo_id"

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

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	mu          sync.Mutex
	ds          *dataset
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newGameManager(ds *dataset, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		ds:          ds,
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gm.ds, gameID)
	gm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
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

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for id, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, id)
				go hub.closeAll()
			}
		}
		gm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "configure", "feedback", "correct", "restart":
			h.cmds <- clientCommand{
				client: c,
				msg:    msg,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
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

// ---- Static file paths ----

//go:embed solver/index.html
var indexHTML []byte

//go:embed solver/app.css
var solverCSS []byte

//go:embed solver/app.js
var solverJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(solverCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(solverJS)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerSolverGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerSolverGame(cfg *Config, ds *dataset, path string, mux *httprouter.Router) {
	gm := newGameManager(ds, cfg.sessionTimeout)

	// Root path → redirect to new random game
	mux.GET(path, redirectNewGame(cfg, path, gm))

	// Per-game client view (HTML)
	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	// Shared assets (no gameid in route)
	mux.GET(cfg.prefix+"/assets/solver/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/solver/app.js", getJsHandler(cfg))

	// Per-game websocket
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	// Per-game QR code
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)
}
