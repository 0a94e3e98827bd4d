package server

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/blackjack/internal/blackjack"
	"github.com/cardroom/blackjack/internal/deck"
)

func newTestServer(t *testing.T) (*Server, *RoomManager, *httptest.Server) {
	t.Helper()
	logger := log.New(io.Discard)
	s := NewServer("127.0.0.1:0", logger)
	mgr := NewRoomManager(blackjack.DefaultRules(), quartz.NewReal(), rand.New(rand.NewSource(11)), s, logger)
	s.SetRooms(mgr)
	go s.run()

	ts := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return s, mgr, ts
}

func dialTestServer(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType MessageType, data interface{}) {
	t.Helper()
	msg, err := NewMessage(msgType, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil discards messages until one of the wanted type arrives,
// decoding its payload into out.
func readUntil(t *testing.T, conn *websocket.Conn, msgType MessageType, out interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == MessageTypeError && msgType != MessageTypeError {
			var errData ErrorData
			_ = json.Unmarshal(msg.Data, &errData)
			t.Fatalf("unexpected error while waiting for %s: %s (%s)", msgType, errData.Code, errData.Message)
		}
		if msg.Type != msgType {
			continue
		}
		if out != nil {
			require.NoError(t, json.Unmarshal(msg.Data, out))
		}
		return
	}
}

func authAndCreateRoom(t *testing.T, conn *websocket.Conn, name string) RoomJoinedData {
	t.Helper()
	sendMessage(t, conn, MessageTypeAuth, AuthData{PlayerName: name})
	var auth AuthResponseData
	readUntil(t, conn, MessageTypeAuthResponse, &auth)
	require.True(t, auth.Success)

	sendMessage(t, conn, MessageTypeCreateRoom, struct{}{})
	var joined RoomJoinedData
	readUntil(t, conn, MessageTypeRoomJoined, &joined)
	return joined
}

func authAndJoinRoom(t *testing.T, conn *websocket.Conn, name, roomID string) RoomJoinedData {
	t.Helper()
	sendMessage(t, conn, MessageTypeAuth, AuthData{PlayerName: name})
	var auth AuthResponseData
	readUntil(t, conn, MessageTypeAuthResponse, &auth)
	require.True(t, auth.Success)

	sendMessage(t, conn, MessageTypeJoinRoom, JoinRoomData{RoomID: roomID})
	var joined RoomJoinedData
	readUntil(t, conn, MessageTypeRoomJoined, &joined)
	return joined
}

func TestCreateRoomOverWebSocket(t *testing.T) {
	_, mgr, ts := newTestServer(t)
	conn := dialTestServer(t, ts)

	joined := authAndCreateRoom(t, conn, "Alice")
	assert.Len(t, joined.RoomID, roomCodeLength)
	assert.NotEmpty(t, joined.PlayerID)
	assert.False(t, joined.Rejoined)

	// The creator receives an initial redacted snapshot.
	var view blackjack.RoomView
	readUntil(t, conn, MessageTypeRoomState, &view)
	assert.Equal(t, joined.RoomID, view.RoomID)
	assert.Equal(t, blackjack.PhaseWaiting, view.Phase)
	assert.Equal(t, joined.PlayerID, view.DealerID)

	room, err := mgr.Get(joined.RoomID)
	require.NoError(t, err)
	assert.Equal(t, joined.PlayerID, room.HostID())
}

func TestCreateRoomRequiresAuth(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dialTestServer(t, ts)

	sendMessage(t, conn, MessageTypeCreateRoom, struct{}{})
	var errData ErrorData
	readUntil(t, conn, MessageTypeError, &errData)
	assert.Equal(t, "not_authenticated", errData.Code)
}

func TestJoinUnknownRoom(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dialTestServer(t, ts)

	sendMessage(t, conn, MessageTypeAuth, AuthData{PlayerName: "Bob"})
	readUntil(t, conn, MessageTypeAuthResponse, nil)

	sendMessage(t, conn, MessageTypeJoinRoom, JoinRoomData{RoomID: "ZZZZ"})
	var errData ErrorData
	readUntil(t, conn, MessageTypeError, &errData)
	assert.Equal(t, "room_not_found", errData.Code)
}

func TestJoinRoomAndSitThroughProtocol(t *testing.T) {
	_, mgr, ts := newTestServer(t)
	host := dialTestServer(t, ts)
	created := authAndCreateRoom(t, host, "Alice")

	player := dialTestServer(t, ts)
	joined := authAndJoinRoom(t, player, "Bob", created.RoomID)
	assert.Equal(t, created.RoomID, joined.RoomID)
	assert.NotEqual(t, created.PlayerID, joined.PlayerID)

	// Bob requests chips, the host approves, Bob sits.
	sendMessage(t, player, MessageTypeRequestChips, ChipRequestData{Amount: 1000})
	var view blackjack.RoomView
	readUntil(t, host, MessageTypeRoomState, &view)

	sendMessage(t, host, MessageTypeApproveChips, ChipDecisionData{PlayerID: joined.PlayerID, Amount: 1000})

	// Wait until the grant is visible before sitting, so the seat
	// request cannot race the balance check.
	for {
		var v blackjack.RoomView
		readUntil(t, player, MessageTypeRoomState, &v)
		funded := false
		for _, p := range v.Players {
			if p.ID == joined.PlayerID && p.Balance >= 1000 {
				funded = true
			}
		}
		if funded {
			break
		}
	}
	sendMessage(t, player, MessageTypeTakeSeat, SeatData{Seat: 2})

	room, err := mgr.Get(created.RoomID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v := room.Snapshot(joined.PlayerID)
		return v.Seats[2] != nil && v.Seats[2].Owner == joined.PlayerID
	}, 5*time.Second, 10*time.Millisecond)

	p, ok := room.PlayerInfo(joined.PlayerID)
	require.True(t, ok)
	assert.Equal(t, 1000, p.Balance)
}

func TestDuplicateNameRejectedWhileConnected(t *testing.T) {
	_, _, ts := newTestServer(t)
	host := dialTestServer(t, ts)
	created := authAndCreateRoom(t, host, "Alice")

	first := dialTestServer(t, ts)
	authAndJoinRoom(t, first, "Bob", created.RoomID)

	second := dialTestServer(t, ts)
	sendMessage(t, second, MessageTypeAuth, AuthData{PlayerName: "Bob"})
	readUntil(t, second, MessageTypeAuthResponse, nil)
	sendMessage(t, second, MessageTypeJoinRoom, JoinRoomData{RoomID: created.RoomID})

	var errData ErrorData
	readUntil(t, second, MessageTypeError, &errData)
	assert.Equal(t, "name_taken", errData.Code)
}

func TestReconnectReclaimsIdentity(t *testing.T) {
	_, _, ts := newTestServer(t)
	host := dialTestServer(t, ts)
	created := authAndCreateRoom(t, host, "Alice")

	first := dialTestServer(t, ts)
	joined := authAndJoinRoom(t, first, "Bob", created.RoomID)
	require.NoError(t, first.Close())

	// The rebinding window opens once the server has processed the
	// disconnect, so retry until the join lands.
	require.Eventually(t, func() bool {
		conn := dialTestServer(t, ts)
		sendMessage(t, conn, MessageTypeAuth, AuthData{PlayerName: "Bob"})
		readUntil(t, conn, MessageTypeAuthResponse, nil)
		sendMessage(t, conn, MessageTypeJoinRoom, JoinRoomData{RoomID: created.RoomID})

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return false
			}
			switch msg.Type {
			case MessageTypeRoomJoined:
				var rejoined RoomJoinedData
				require.NoError(t, json.Unmarshal(msg.Data, &rejoined))
				assert.True(t, rejoined.Rejoined)
				assert.Equal(t, joined.PlayerID, rejoined.PlayerID, "the same identity is reclaimed")
				return true
			case MessageTypeError:
				_ = conn.Close()
				return false
			}
		}
	}, 10*time.Second, 100*time.Millisecond)
}

func TestRoomRemovedWhenLastConnectionDrops(t *testing.T) {
	_, mgr, ts := newTestServer(t)
	conn := dialTestServer(t, ts)
	authAndCreateRoom(t, conn, "Alice")
	require.Equal(t, 1, mgr.Count())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return mgr.Count() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestErrorCodeMapping(t *testing.T) {
	assert.Equal(t, "invalid_phase", errorCode(blackjack.ErrInvalidPhase))
	assert.Equal(t, "not_dealer", errorCode(blackjack.ErrNotDealer))
	assert.Equal(t, "insufficient_balance", errorCode(blackjack.ErrInsufficientBalance))
	assert.Equal(t, "room_not_found", errorCode(ErrRoomNotFound))
	assert.Equal(t, "shoe_exhausted", errorCode(deck.ErrShoeExhausted))
	assert.Equal(t, "internal_error", errorCode(io.EOF))
}
