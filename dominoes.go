// Dominobox two-player dominoes.
//
// Classic draw dominoes for exactly two players: each player is dealt seven
// tiles from a shuffled double-six set, the holder of the highest double
// opens, and players alternate placing tiles against either end of the board
// chain. A player who cannot move draws from the pool, or passes once the
// pool is dry. First empty hand wins; if both players pass back to back with
// no tile playable anywhere, the lower pip count takes the game.
//
// Features:
// - WebSockets per room: /domino/:room and /domino/:room/ws
// - Rooms identified by 6-char uppercase+digit codes, collision-checked
// - Players identified by cookie (playerID); rejoining the same room with
//   the same cookie reclaims the seat and hand
// - The game starts automatically when the second player joins
// - Every mutation rebroadcasts a per-player view; opponents never see each
//   other's tiles or the pool contents
// - Rule violations are reported to the offending client only
// - Rooms are torn down when the last seat is abandoned, or reaped after a
//   configurable idle timeout
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type  string `json:"type"`           // "join", "play", "draw", "pass", "state"
	Name  string `json:"name,omitempty"` // join
	Left  int    `json:"left"`           // play
	Right int    `json:"right"`          // play
	Side  string `json:"side,omitempty"` // play: "left" or "right"
}

// SessionInfoMessage is sent immediately on connect so the client knows
// whether this cookie already holds a seat in the room.
type SessionInfoMessage struct {
	Type       string `json:"type"` // "session_info"
	RoomCode   string `json:"room_code"`
	IsExisting bool   `json:"is_existing"`    // true if this cookie already has a seat
	Name       string `json:"name,omitempty"` // known name for this cookie, if any
	Started    bool   `json:"started"`
}

// NoticeMessage carries generic room events ("player_joined", "player_left").
type NoticeMessage struct {
	Type    string `json:"type"` // "notice"
	Event   string `json:"event"`
	Message string `json:"message"`
}

// ErrorMessage is sent to a single client when a command is rejected.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// GameStateMessage wraps a player-scoped view for broadcast.
type GameStateMessage struct {
	Type string `json:"type"` // "game_state"
	*GameView
}

// TileDrawnMessage echoes the drawn tile to the drawing player only.
type TileDrawnMessage struct {
	Type string `json:"type"` // "tile_drawn"
	Tile Tile   `json:"tile"`
}

// GameFinishedMessage announces the end of the game to the whole room.
type GameFinishedMessage struct {
	Type    string `json:"type"` // "game_finished"
	Winner  string `json:"winner"`
	Blocked bool   `json:"blocked"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

// Hub owns one room: its MatchEngine, the connected clients, and the channels
// that serialize every engine mutation through the run loop.
type Hub struct {
	code    string
	engine  *MatchEngine
	clients map[*Client]bool
	rooms   *RoomManager

	register chan *Client
	unreg    chan *Client
	commands chan command

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(code string, rooms *RoomManager) *Hub {
	now := time.Now()
	return &Hub{
		code:       code,
		engine:     NewMatchEngine(code),
		clients:    make(map[*Client]bool),
		rooms:      rooms,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			existingName := ""
			isExisting := false
			if view, err := h.engine.ViewFor(c.playerID); err == nil {
				isExisting = true
				existingName = view.Players[c.playerID].Name
			}

			h.sendLocked(c, SessionInfoMessage{
				Type:       "session_info",
				RoomCode:   h.code,
				IsExisting: isExisting,
				Name:       existingName,
				Started:    h.engine.Started(),
			})

			// Reconnecting participants get their current view right away.
			if isExisting {
				h.sendViewLocked(c)
			}
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			playerID := c.playerID
			h.mu.Unlock()

			if playerID != "" {
				go h.scheduleRemoval(cfg, playerID, cfg.playerTimeout)
			}

		case cmd := <-h.commands:
			h.handleCommand(cfg, cmd)
		}
	}
}

// handleCommand applies one client command to the engine. Commands are
// processed one at a time, so engine reads and writes never interleave.
func (h *Hub) handleCommand(cfg *Config, cmd command) {
	c := cmd.client
	msg := cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	switch msg.Type {
	case "join":
		h.handleJoinLocked(cfg, c, msg)

	case "play":
		res, err := h.engine.PlayTile(c.playerID, msg.Left, msg.Right, Side(msg.Side))
		if err != nil {
			h.sendLocked(c, ErrorMessage{Type: "error", Message: err.Error()})
			return
		}
		logf(cfg, "GAMES: %q played [%d|%d] in %s", h.engine.PlayerName(c.playerID), msg.Left, msg.Right, h.code)
		h.broadcastViewsLocked()
		h.announceIfFinishedLocked(cfg, res)

	case "draw":
		res, err := h.engine.DrawTile(c.playerID)
		if err != nil {
			h.sendLocked(c, ErrorMessage{Type: "error", Message: err.Error()})
			return
		}
		h.sendLocked(c, TileDrawnMessage{Type: "tile_drawn", Tile: *res.Drawn})
		h.broadcastViewsLocked()
		h.announceIfFinishedLocked(cfg, res)

	case "pass":
		res, err := h.engine.PassTurn(c.playerID)
		if err != nil {
			h.sendLocked(c, ErrorMessage{Type: "error", Message: err.Error()})
			return
		}
		h.broadcastViewsLocked()
		h.announceIfFinishedLocked(cfg, res)

	case "state":
		h.sendViewLocked(c)
	}
}

func (h *Hub) handleJoinLocked(cfg *Config, c *Client, msg ClientMessage) {
	name := strings.TrimSpace(msg.Name)
	if name == "" || c.playerID == "" {
		return
	}

	if err := h.engine.AddPlayer(c.playerID, name); err != nil {
		h.sendLocked(c, ErrorMessage{Type: "error", Message: err.Error()})
		return
	}
	logf(cfg, "GAMES: Player %q joined %s", name, h.code)

	h.broadcastLocked(NoticeMessage{
		Type:    "notice",
		Event:   "player_joined",
		Message: name + " joined the room.",
	})

	// Second seat filled: deal and open the game.
	if h.engine.PlayerCount() == seatCount && h.engine.Start() {
		logf(cfg, "GAMES: Game started in %s", h.code)
	}

	h.broadcastViewsLocked()
}

func (h *Hub) announceIfFinishedLocked(cfg *Config, res *MoveResult) {
	if !res.Finished {
		return
	}

	winner := h.engine.PlayerName(res.WinnerID)
	text := winner + " won the game!"
	if res.Blocked {
		text = winner + " won! (Game blocked - lowest pip count)"
	}
	logf(cfg, "GAMES: %s in %s", text, h.code)

	h.broadcastLocked(GameFinishedMessage{
		Type:    "game_finished",
		Winner:  winner,
		Blocked: res.Blocked,
		Message: text,
	})
}

// sendLocked queues one message for one client, evicting it if its buffer is
// full. Assumes h.mu is held.
func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// sendViewLocked sends the caller's scoped view to that client only.
func (h *Hub) sendViewLocked(c *Client) {
	view, err := h.engine.ViewFor(c.playerID)
	if err != nil {
		return
	}
	h.sendLocked(c, GameStateMessage{Type: "game_state", GameView: view})
}

// broadcastViewsLocked rebroadcasts each connected participant's own view.
// Spectating cookies without a seat receive nothing.
func (h *Hub) broadcastViewsLocked() {
	for c := range h.clients {
		h.sendViewLocked(c)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for c := range h.clients {
		h.sendLocked(c, msg)
	}
}

// scheduleRemoval waits for d, and if no client with this playerID has
// reconnected, forfeits that player's seat. The room is torn down once the
// last seat is gone.
func (h *Hub) scheduleRemoval(cfg *Config, playerID string, d time.Duration) {
	time.Sleep(d)

	h.mu.Lock()

	for c := range h.clients {
		if c.playerID == playerID {
			h.mu.Unlock()
			return
		}
	}

	name := h.engine.PlayerName(playerID)
	if name == "" {
		h.mu.Unlock()
		return
	}

	h.engine.RemovePlayer(playerID)
	h.lastActive = time.Now()
	logf(cfg, "GAMES: Player %q left %s", name, h.code)

	h.broadcastLocked(NoticeMessage{
		Type:    "notice",
		Event:   "player_left",
		Message: name + " left the room.",
	})

	empty := h.engine.IsEmpty()
	h.mu.Unlock()

	if empty {
		h.rooms.removeIfEmpty(cfg, h.code)
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

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "dominobox_id"

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

// RoomManager holds the set of hubs keyed by room code, so each
// /domino/:room is its own isolated match.
type RoomManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newRoomManager(idleTimeout time.Duration) *RoomManager {
	rm := &RoomManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

func (rm *RoomManager) getHub(cfg *Config, code string) *Hub {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if hub, ok := rm.hubs[code]; ok {
		return hub
	}

	hub := newHub(code, rm)
	rm.hubs[code] = hub
	go hub.run(cfg)
	return hub
}

// roomCodeLength and roomCodeAlphabet fix the shape of shareable room codes.
const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// newRoomCode generates a crypto-random room code and ensures it doesn't
// collide with a currently-open room.
func (rm *RoomManager) newRoomCode() string {
	for {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
		}
		code := string(out)

		rm.mu.Lock()
		_, exists := rm.hubs[code]
		rm.mu.Unlock()

		if !exists {
			return code
		}
	}
}

// removeIfEmpty tears the room down once nobody holds a seat in it.
func (rm *RoomManager) removeIfEmpty(cfg *Config, code string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	hub, ok := rm.hubs[code]
	if !ok {
		return
	}

	hub.mu.RLock()
	empty := hub.engine.IsEmpty() && len(hub.clients) == 0
	hub.mu.RUnlock()

	if empty {
		delete(rm.hubs, code)
		logf(cfg, "GAMES: Room %s removed (empty)", code)
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-rm.idleTimeout)

		rm.mu.Lock()
		for code, hub := range rm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(rm.hubs, code)
				go hub.closeAll()
			}
		}
		rm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :room
func serveWSForManager(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := strings.ToUpper(ps.ByName("room"))
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := rm.getHub(cfg, code)

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
		case "join", "play", "draw", "pass", "state":
			h.commands <- command{
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

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("room")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
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

	// We are at /.../:room/qr; strip trailing "/qr" to get the room URL.
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

//go:embed domino/index.html
var indexHTML []byte

//go:embed domino/app.css
var dominoCSS []byte

//go:embed domino/app.js
var dominoJS []byte

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

		_, _ = w.Write(dominoCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(dominoJS)
	}
}

// redirectNewRoom handles GET /path by generating a new random room code
// (with server-side collision detection) and redirecting to /path/:room.
func redirectNewRoom(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := rm.newRoomCode()
		logf(cfg, "GAMES: Created room %s/%s", path, code)
		http.Redirect(w, r, path+"/"+code, http.StatusTemporaryRedirect)
	}
}

// registerDominoGame sets up routes so that:
//   - $path                  → redirects to a new random room (6-char code)
//   - $path/:room            → HTML client
//   - $path/:room/ws         → WebSocket for that room
//   - $path/:room/qr         → PNG QR code for that room URL
func registerDominoGame(cfg *Config, path string, mux *httprouter.Router) {
	rm := newRoomManager(cfg.sessionTimeout)

	// Root path → redirect to new random room
	mux.GET(path, redirectNewRoom(cfg, path, rm))

	// Per-room client view (HTML)
	mux.GET(cfg.prefix+path+"/:room", getIndexHandler(cfg))

	// Shared assets (no room code in route)
	mux.GET(cfg.prefix+"/assets/domino/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/domino/app.js", getJsHandler(cfg))

	// Per-room websocket
	mux.GET(cfg.prefix+path+"/:room/ws", serveWSForManager(cfg, rm))

	// Per-room QR code
	mux.GET(cfg.prefix+path+"/:room/qr", qrHandler)
}
