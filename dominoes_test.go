package main

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewRoomCodeShape(t *testing.T) {
	rm := newRoomManager(0)

	for i := 0; i < 50; i++ {
		code := rm.newRoomCode()
		if len(code) != roomCodeLength {
			t.Fatalf("expected %d-char code, got %q", roomCodeLength, code)
		}
		for _, c := range code {
			if !strings.ContainsRune(roomCodeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
	}
}

func TestNewRoomCodeAvoidsOpenRooms(t *testing.T) {
	rm := newRoomManager(0)

	// Occupy a large slice of the namespace and ensure no allocation
	// collides with it.
	taken := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := rm.newRoomCode()
		rm.hubs[code] = newHub(code, rm)
		taken[code] = true
	}

	for i := 0; i < 200; i++ {
		if code := rm.newRoomCode(); taken[code] {
			t.Fatalf("allocated already-open code %q", code)
		}
	}
}

func TestGetOrSetPlayerIDRoundTrips(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/domino/ABC123", nil)

	id := getOrSetPlayerID(w, r)
	if id == "" {
		t.Fatal("no player id assigned")
	}
	if len(id) != 32 {
		t.Fatalf("expected 32-char hex id, got %q", id)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != playerCookieName {
		t.Fatalf("expected %s cookie, got %v", playerCookieName, cookies)
	}

	// A request that already carries the cookie keeps its identity.
	r2 := httptest.NewRequest("GET", "/domino/ABC123", nil)
	r2.AddCookie(cookies[0])
	if got := getOrSetPlayerID(httptest.NewRecorder(), r2); got != id {
		t.Fatalf("expected reused id %q, got %q", id, got)
	}
}

func newTestClient(playerID string) *Client {
	return &Client{
		send:     make(chan any, 8),
		playerID: playerID,
	}
}

// drain empties a client's send buffer and returns everything queued so far.
func drain(c *Client) []any {
	var msgs []any
	for {
		select {
		case msg := <-c.send:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func lastGameState(t *testing.T, msgs []any) GameStateMessage {
	t.Helper()

	for i := len(msgs) - 1; i >= 0; i-- {
		if gs, ok := msgs[i].(GameStateMessage); ok {
			return gs
		}
	}
	t.Fatalf("no game_state in %v", msgs)
	return GameStateMessage{}
}

func TestSecondJoinStartsGame(t *testing.T) {
	cfg := &Config{}
	rm := newRoomManager(0)
	hub := newHub("ABC123", rm)

	alice := newTestClient("ida")
	bob := newTestClient("idb")
	hub.clients[alice] = true
	hub.clients[bob] = true

	hub.handleCommand(cfg, command{client: alice, msg: ClientMessage{Type: "join", Name: "Alice"}})
	if hub.engine.Started() {
		t.Fatal("game started with one player")
	}

	hub.handleCommand(cfg, command{client: bob, msg: ClientMessage{Type: "join", Name: "Bob"}})
	if !hub.engine.Started() {
		t.Fatal("game did not start when the second seat filled")
	}

	state := lastGameState(t, drain(alice))
	if state.Me != "ida" {
		t.Fatalf("expected alice's own view, got me=%q", state.Me)
	}
	if len(state.MyHand) != handSize {
		t.Fatalf("expected a dealt hand in the broadcast view, got %d tiles", len(state.MyHand))
	}
}

func TestThirdJoinGetsErrorOnly(t *testing.T) {
	cfg := &Config{}
	rm := newRoomManager(0)
	hub := newHub("ABC123", rm)

	alice := newTestClient("ida")
	bob := newTestClient("idb")
	carol := newTestClient("idc")
	hub.clients[alice] = true
	hub.clients[bob] = true
	hub.clients[carol] = true

	hub.handleCommand(cfg, command{client: alice, msg: ClientMessage{Type: "join", Name: "Alice"}})
	hub.handleCommand(cfg, command{client: bob, msg: ClientMessage{Type: "join", Name: "Bob"}})
	drain(alice)
	drain(bob)
	drain(carol)

	hub.handleCommand(cfg, command{client: carol, msg: ClientMessage{Type: "join", Name: "Carol"}})

	msgs := drain(carol)
	if len(msgs) != 1 {
		t.Fatalf("expected a single rejection message, got %v", msgs)
	}
	if e, ok := msgs[0].(ErrorMessage); !ok || e.Message != ErrRoomFull.Error() {
		t.Fatalf("expected room-full error, got %v", msgs[0])
	}

	// The seated players see no broadcast for the rejected command.
	if msgs := drain(alice); len(msgs) != 0 {
		t.Fatalf("rejection leaked to alice: %v", msgs)
	}
	if msgs := drain(bob); len(msgs) != 0 {
		t.Fatalf("rejection leaked to bob: %v", msgs)
	}
}

func TestRuleViolationGoesToOffenderOnly(t *testing.T) {
	cfg := &Config{}
	rm := newRoomManager(0)
	hub := newHub("ABC123", rm)

	alice := newTestClient("ida")
	bob := newTestClient("idb")
	hub.clients[alice] = true
	hub.clients[bob] = true

	hub.handleCommand(cfg, command{client: alice, msg: ClientMessage{Type: "join", Name: "Alice"}})
	hub.handleCommand(cfg, command{client: bob, msg: ClientMessage{Type: "join", Name: "Bob"}})
	drain(alice)
	drain(bob)

	// Whoever is not the turn-holder issues a pass.
	offender := alice
	bystander := bob
	if hub.engine.CurrentPlayerID() == "ida" {
		offender, bystander = bob, alice
	}

	hub.handleCommand(cfg, command{client: offender, msg: ClientMessage{Type: "pass"}})

	msgs := drain(offender)
	if len(msgs) != 1 {
		t.Fatalf("expected one error message, got %v", msgs)
	}
	if e, ok := msgs[0].(ErrorMessage); !ok || e.Message != ErrNotYourTurn.Error() {
		t.Fatalf("expected not-your-turn error, got %v", msgs[0])
	}
	if msgs := drain(bystander); len(msgs) != 0 {
		t.Fatalf("error broadcast to bystander: %v", msgs)
	}
}

func TestBroadcastViewsAreScopedPerPlayer(t *testing.T) {
	cfg := &Config{}
	rm := newRoomManager(0)
	hub := newHub("ABC123", rm)

	alice := newTestClient("ida")
	bob := newTestClient("idb")
	hub.clients[alice] = true
	hub.clients[bob] = true

	hub.handleCommand(cfg, command{client: alice, msg: ClientMessage{Type: "join", Name: "Alice"}})
	hub.handleCommand(cfg, command{client: bob, msg: ClientMessage{Type: "join", Name: "Bob"}})

	aliceView := lastGameState(t, drain(alice))
	bobView := lastGameState(t, drain(bob))

	if aliceView.Me != "ida" || bobView.Me != "idb" {
		t.Fatalf("views not scoped: alice sees %q, bob sees %q", aliceView.Me, bobView.Me)
	}
	for _, tile := range bobView.MyHand {
		for _, other := range aliceView.MyHand {
			if tile == other || tile == other.Reversed() {
				t.Fatalf("tile %s appears in both hands", tile)
			}
		}
	}
}

func TestRemoveIfEmptyKeepsOccupiedRooms(t *testing.T) {
	cfg := &Config{}
	rm := newRoomManager(0)
	hub := rm.getHub(cfg, "ABC123")

	hub.mu.Lock()
	if err := hub.engine.AddPlayer("ida", "Alice"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	hub.mu.Unlock()

	rm.removeIfEmpty(cfg, "ABC123")
	rm.mu.Lock()
	_, ok := rm.hubs["ABC123"]
	rm.mu.Unlock()
	if !ok {
		t.Fatal("occupied room was torn down")
	}

	hub.mu.Lock()
	hub.engine.RemovePlayer("ida")
	hub.mu.Unlock()

	rm.removeIfEmpty(cfg, "ABC123")
	rm.mu.Lock()
	_, ok = rm.hubs["ABC123"]
	rm.mu.Unlock()
	if ok {
		t.Fatal("empty room was not torn down")
	}
}

func TestScheduleRemovalForfeitsSeat(t *testing.T) {
	cfg := &Config{}
	rm := newRoomManager(0)
	hub := rm.getHub(cfg, "ABC123")

	hub.mu.Lock()
	if err := hub.engine.AddPlayer("ida", "Alice"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if err := hub.engine.AddPlayer("idb", "Bob"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	bob := newTestClient("idb")
	hub.clients[bob] = true
	hub.mu.Unlock()

	// Alice has no connected client, so her seat is forfeited immediately.
	hub.scheduleRemoval(cfg, "ida", time.Millisecond)

	hub.mu.RLock()
	count := hub.engine.PlayerCount()
	hub.mu.RUnlock()
	if count != 1 {
		t.Fatalf("expected 1 player after forfeit, got %d", count)
	}

	msgs := drain(bob)
	if len(msgs) != 1 {
		t.Fatalf("expected one notice, got %v", msgs)
	}
	if n, ok := msgs[0].(NoticeMessage); !ok || n.Event != "player_left" {
		t.Fatalf("expected player_left notice, got %v", msgs[0])
	}

	// Bob is still connected, so his seat survives his own timer.
	hub.scheduleRemoval(cfg, "idb", time.Millisecond)
	hub.mu.RLock()
	count = hub.engine.PlayerCount()
	hub.mu.RUnlock()
	if count != 1 {
		t.Fatalf("expected connected player to keep the seat, got %d players", count)
	}
}
