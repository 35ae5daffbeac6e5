package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Player is one seated participant in a match.
type Player struct {
	ID   string
	Name string
	Seat int
	Hand []Tile
}

// pips is the total pip count of the player's hand.
func (p *Player) pips() int {
	total := 0
	for _, t := range p.Hand {
		total += t.Sum()
	}
	return total
}

// MoveResult reports the outcome of a successful mutating operation.
type MoveResult struct {
	Finished bool
	Blocked  bool   // game ended because neither player could move
	WinnerID string // set when Finished
	Drawn    *Tile  // set by DrawTile, shown to the caller only
}

// MatchEngine is the authoritative state machine for one room: tile pool,
// board, both hands, turn pointer and termination state. It holds no lock of
// its own; the owning hub applies one command at a time.
type MatchEngine struct {
	roomCode string
	players  map[string]*Player
	board    []Tile
	pool     []Tile

	currentSeat int
	started     bool
	finished    bool
	winnerID    string
	passes      int // consecutive passes since the last successful play
	startInfo   string

	rng *rand.Rand
}

// newSeed generates a shuffle seed using crypto/rand.
func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func NewMatchEngine(roomCode string) *MatchEngine {
	return &MatchEngine{
		roomCode: roomCode,
		players:  make(map[string]*Player),
		rng:      rand.New(rand.NewSource(newSeed())),
	}
}

// AddPlayer seats a new player, or updates the name of an already-seated
// player with the same id (reconnection). Seats are assigned in join order
// and never reassigned.
func (m *MatchEngine) AddPlayer(id, name string) error {
	if p, ok := m.players[id]; ok {
		p.Name = name
		return nil
	}

	// A started game never seats new players, even if a seat was
	// forfeited mid-game.
	if len(m.players) >= seatCount || m.started {
		return ErrRoomFull
	}

	m.players[id] = &Player{
		ID:   id,
		Name: name,
		Seat: len(m.players),
	}
	return nil
}

// RemovePlayer drops the player's seat entry. The remaining player's seat is
// left as-is; room teardown on emptiness is the hub's job.
func (m *MatchEngine) RemovePlayer(id string) {
	delete(m.players, id)
}

func (m *MatchEngine) PlayerCount() int {
	return len(m.players)
}

func (m *MatchEngine) IsEmpty() bool {
	return len(m.players) == 0
}

func (m *MatchEngine) Started() bool {
	return m.started
}

func (m *MatchEngine) Finished() bool {
	return m.finished
}

// PlayerName returns the display name for a seated player, or "" if the id
// is unknown.
func (m *MatchEngine) PlayerName(id string) string {
	if p, ok := m.players[id]; ok {
		return p.Name
	}
	return ""
}

// playerBySeat returns the player currently holding the given seat, or nil.
func (m *MatchEngine) playerBySeat(seat int) *Player {
	for _, p := range m.players {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}

// CurrentPlayerID returns the id of the turn-holder, or "" before start.
func (m *MatchEngine) CurrentPlayerID() string {
	if !m.started {
		return ""
	}
	if p := m.playerBySeat(m.currentSeat); p != nil {
		return p.ID
	}
	return ""
}

// Start shuffles and deals once exactly two players are seated. Seat 0 gets
// the first seven tiles, seat 1 the next seven, the remaining fourteen become
// the pool. The seat holding the highest double takes the first turn; when
// neither hand has a double, seat 0 starts.
func (m *MatchEngine) Start() bool {
	if len(m.players) != seatCount || m.started {
		return false
	}

	tiles := newTileSet()
	m.rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})

	for seat := 0; seat < seatCount; seat++ {
		p := m.playerBySeat(seat)
		p.Hand = append([]Tile(nil), tiles[seat*handSize:(seat+1)*handSize]...)
	}
	m.pool = append([]Tile(nil), tiles[seatCount*handSize:]...)

	m.currentSeat, m.startInfo = m.startingSeat()
	m.started = true

	return true
}

// startingSeat scans both hands for the globally highest double. Tiles are
// unique, so at most one hand can hold any given double.
func (m *MatchEngine) startingSeat() (int, string) {
	bestSeat := -1
	bestPip := -1
	for _, p := range m.players {
		for _, t := range p.Hand {
			if t.IsDouble() && t.Left > bestPip {
				bestPip = t.Left
				bestSeat = p.Seat
			}
		}
	}

	if bestSeat < 0 {
		first := m.playerBySeat(0)
		return 0, fmt.Sprintf("No doubles were dealt; %s starts.", first.Name)
	}

	starter := m.playerBySeat(bestSeat)
	return bestSeat, fmt.Sprintf("%s starts with the highest double [%d|%d].", starter.Name, bestPip, bestPip)
}

// canPlay reports whether the tile fits either board end. On an empty board
// any tile plays. The returned side is the preferred placement, matching the
// right end first.
func (m *MatchEngine) canPlay(t Tile) (bool, Side) {
	if len(m.board) == 0 {
		return true, SideRight
	}

	leftEnd := m.board[0].Left
	rightEnd := m.board[len(m.board)-1].Right

	if t.Left == rightEnd || t.Right == rightEnd {
		return true, SideRight
	}
	if t.Left == leftEnd || t.Right == leftEnd {
		return true, SideLeft
	}

	return false, ""
}

// checkTurn validates the shared preconditions of every turn operation.
func (m *MatchEngine) checkTurn(playerID string) (*Player, error) {
	p, ok := m.players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if !m.started || m.finished {
		return nil, ErrGameNotActive
	}
	if p.Seat != m.currentSeat {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// PlayTile places the caller's tile matching the unordered pair (a, b) on the
// given end of the board, reorienting it as needed. Emptying the hand wins
// immediately; otherwise the turn passes to the other seat.
func (m *MatchEngine) PlayTile(playerID string, a, b int, side Side) (*MoveResult, error) {
	p, err := m.checkTurn(playerID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, t := range p.Hand {
		if t.Matches(a, b) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrTileNotInHand
	}
	tile := p.Hand[idx]

	placed, err := m.place(tile, side)
	if err != nil {
		return nil, err
	}

	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	m.board = placed
	m.passes = 0

	if len(p.Hand) == 0 {
		m.finished = true
		m.winnerID = p.ID
		return &MoveResult{Finished: true, WinnerID: p.ID}, nil
	}

	m.currentSeat = (m.currentSeat + 1) % seatCount
	return &MoveResult{}, nil
}

// place returns the board with the tile attached to the requested end, or
// ErrIllegalMove if neither orientation fits there.
func (m *MatchEngine) place(t Tile, side Side) ([]Tile, error) {
	if len(m.board) == 0 {
		return []Tile{t}, nil
	}

	switch side {
	case SideLeft:
		leftEnd := m.board[0].Left
		if t.Right == leftEnd {
			return append([]Tile{t}, m.board...), nil
		}
		if t.Left == leftEnd {
			return append([]Tile{t.Reversed()}, m.board...), nil
		}
	default: // right
		rightEnd := m.board[len(m.board)-1].Right
		if t.Left == rightEnd {
			return append(m.board, t), nil
		}
		if t.Right == rightEnd {
			return append(m.board, t.Reversed()), nil
		}
	}

	return nil, ErrIllegalMove
}

// DrawTile moves one tile from the pool to the caller's hand. The caller
// keeps the turn. An empty pool rejects the draw; the caller must pass
// explicitly instead. If the draw empties the pool and still leaves the hand
// unplayable, the blocked-game check runs immediately.
func (m *MatchEngine) DrawTile(playerID string) (*MoveResult, error) {
	p, err := m.checkTurn(playerID)
	if err != nil {
		return nil, err
	}

	if len(m.pool) == 0 {
		return nil, ErrPoolEmpty
	}

	tile := m.pool[len(m.pool)-1]
	m.pool = m.pool[:len(m.pool)-1]
	p.Hand = append(p.Hand, tile)

	res := &MoveResult{Drawn: &tile}

	if len(m.pool) == 0 && !m.handHasMove(p) {
		if blocked, winnerID := m.checkBlocked(); blocked {
			m.finish(winnerID)
			res.Finished = true
			res.Blocked = true
			res.WinnerID = winnerID
		}
	}

	return res, nil
}

// PassTurn hands the turn to the other seat. Two consecutive passes with no
// intervening play trigger the blocked-game check.
func (m *MatchEngine) PassTurn(playerID string) (*MoveResult, error) {
	if _, err := m.checkTurn(playerID); err != nil {
		return nil, err
	}

	m.passes++
	m.currentSeat = (m.currentSeat + 1) % seatCount

	if m.passes >= seatCount {
		if blocked, winnerID := m.checkBlocked(); blocked {
			m.finish(winnerID)
			return &MoveResult{Finished: true, Blocked: true, WinnerID: winnerID}, nil
		}
	}

	return &MoveResult{}, nil
}

func (m *MatchEngine) handHasMove(p *Player) bool {
	for _, t := range p.Hand {
		if ok, _ := m.canPlay(t); ok {
			return true
		}
	}
	return false
}

// checkBlocked reports whether the game can no longer progress: the pool is
// empty and neither hand holds a playable tile. The winner is the player with
// the lowest pip count; on equal pips the lower seat wins.
func (m *MatchEngine) checkBlocked() (bool, string) {
	if len(m.pool) > 0 {
		return false, ""
	}

	for _, p := range m.players {
		if m.handHasMove(p) {
			return false, ""
		}
	}

	var winner *Player
	for _, p := range m.players {
		if winner == nil {
			winner = p
			continue
		}
		pips, best := p.pips(), winner.pips()
		if pips < best || (pips == best && p.Seat < winner.Seat) {
			winner = p
		}
	}
	if winner == nil {
		return false, ""
	}

	return true, winner.ID
}

func (m *MatchEngine) finish(winnerID string) {
	m.finished = true
	m.winnerID = winnerID
}

// PlayerView is the per-player slice of another participant's public state.
type PlayerView struct {
	Name      string `json:"name"`
	Seat      int    `json:"seat"`
	HandCount int    `json:"hand_count"`
}

// GameView is the player-scoped snapshot sent to clients. It is the only
// channel of game information, so it carries the caller's own hand but never
// the opponent's tiles or the pool contents.
type GameView struct {
	RoomCode      string                `json:"room_code"`
	Me            string                `json:"me"`
	Players       map[string]PlayerView `json:"players"`
	MyHand        []Tile                `json:"my_hand"`
	Board         []Tile                `json:"board"`
	CurrentPlayer string                `json:"current_player,omitempty"`
	Started       bool                  `json:"started"`
	Finished      bool                  `json:"finished"`
	Winner        string                `json:"winner,omitempty"`
	PoolCount     int                   `json:"pool_count"`
	StartInfo     string                `json:"start_info,omitempty"`
}

// ViewFor projects the game state for one participant.
func (m *MatchEngine) ViewFor(playerID string) (*GameView, error) {
	p, ok := m.players[playerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}

	players := make(map[string]PlayerView, len(m.players))
	for id, other := range m.players {
		players[id] = PlayerView{
			Name:      other.Name,
			Seat:      other.Seat,
			HandCount: len(other.Hand),
		}
	}

	view := &GameView{
		RoomCode:      m.roomCode,
		Me:            p.ID,
		Players:       players,
		MyHand:        append([]Tile(nil), p.Hand...),
		Board:         append([]Tile(nil), m.board...),
		CurrentPlayer: m.CurrentPlayerID(),
		Started:       m.started,
		Finished:      m.finished,
		PoolCount:     len(m.pool),
	}

	if m.winnerID != "" {
		if w, ok := m.players[m.winnerID]; ok {
			view.Winner = w.Name
		}
	}

	// Only relevant while nothing has been played yet.
	if m.started && len(m.board) == 0 {
		view.StartInfo = m.startInfo
	}

	return view, nil
}
