package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Chat/internal/adapters/blob"
	"github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/adapters/storage"
	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

type testServer struct {
	*httptest.Server
	orch *orch.Orchestrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	msgs, err := storage.NewMessageRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = msgs.Close() })
	users := storage.NewUserRepository(db)
	audio := blob.NewAudioStore(afero.NewMemMapFs(), "/media/")

	rooms := core.NewRoomManager()
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
		Policy:   app.SimplePolicy{},
		Relay:    &app.Relay{Messages: msgs, Attachments: audio, Rooms: rooms},
		Users:    users,
	}
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	cfg := &config.Config{Mode: "test", Secret: "test-secret-0123456789", MediaURL: "/media/"}
	r := SetupRouter(context.Background(), cfg, Deps{
		Orch:     o,
		History:  &app.History{Messages: msgs, Users: users},
		Users:    users,
		Audio:    audio,
		Location: loc,
		Signal:   signal.DefaultOptions(),
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		o.Shutdown()
		srv.Close()
	})
	return &testServer{Server: srv, orch: o}
}

type client struct {
	t    *testing.T
	srv  *testServer
	http *http.Client
}

func (s *testServer) client(t *testing.T) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, srv: s, http: &http.Client{Jar: jar}}
}

func (c *client) postJSON(path string, body any) *http.Response {
	c.t.Helper()
	b, err := json.Marshal(body)
	require.NoError(c.t, err)
	resp, err := c.http.Post(c.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (c *client) get(path string, out any) int {
	c.t.Helper()
	resp, err := c.http.Get(c.srv.URL + path)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signup registers and logs in.
func (c *client) signup(name string) {
	c.t.Helper()
	require.Equal(c.t, http.StatusCreated, c.postJSON("/api/users", usernameRequest{Username: name}).StatusCode)
	require.Equal(c.t, http.StatusOK, c.postJSON("/api/login", usernameRequest{Username: name}).StatusCode)
}

func (c *client) dial(peer string) (*websocket.Conn, *http.Response, error) {
	d := websocket.Dialer{Jar: c.http.Jar, HandshakeTimeout: 2 * time.Second}
	return d.Dial("ws"+strings.TrimPrefix(c.srv.URL, "http")+"/ws/chat/"+peer, nil)
}

func readJSON(t *testing.T, ws *websocket.Conn, out any) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestRouter_RegisterRejectsDuplicatesAndBadNames(t *testing.T) {
	srv := newTestServer(t)
	c := srv.client(t)

	assert.Equal(t, http.StatusCreated, c.postJSON("/api/users", usernameRequest{Username: "alice"}).StatusCode)
	assert.Equal(t, http.StatusConflict, c.postJSON("/api/users", usernameRequest{Username: "alice"}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, c.postJSON("/api/users", usernameRequest{Username: "no spaces"}).StatusCode)
	assert.Equal(t, http.StatusNotFound, c.postJSON("/api/login", usernameRequest{Username: "ghost"}).StatusCode)
}

func TestRouter_UnauthenticatedRequestsAreRefused(t *testing.T) {
	srv := newTestServer(t)
	c := srv.client(t)

	assert.Equal(t, http.StatusUnauthorized, c.get("/api/contacts", nil))
	assert.Equal(t, http.StatusUnauthorized, c.get("/api/rooms", nil))
	assert.Equal(t, http.StatusUnauthorized, c.get("/api/chat/bob", nil))

	_, resp, err := c.dial("bob")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_UnknownCounterpartIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	c := srv.client(t)
	c.signup("alice")

	_, resp, err := c.dial("nobody")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, c.get("/api/chat/nobody", nil))
	assert.Zero(t, srv.orch.Registry.Len())
}

func TestRouter_ChatEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	alice, bob := srv.client(t), srv.client(t)
	alice.signup("alice")
	bob.signup("bob")

	wsA, _, err := alice.dial("bob")
	require.NoError(t, err)
	defer wsA.Close()
	wsB, _, err := bob.dial("alice")
	require.NoError(t, err)
	defer wsB.Close()

	key := domain.NewRoomKey("alice", "bob")
	require.Eventually(t, func() bool {
		return len(srv.orch.Rooms.MembersOf(key)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	type roomList struct {
		Rooms []struct {
			Key          string    `json:"key"`
			Participants [2]string `json:"participants"`
			MemberCount  int       `json:"client_count"`
		} `json:"rooms"`
	}
	var rooms roomList
	require.Equal(t, http.StatusOK, alice.get("/api/rooms", &rooms))
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, "alicebob", rooms.Rooms[0].Key)
	assert.Equal(t, [2]string{"alice", "bob"}, rooms.Rooms[0].Participants)
	assert.Equal(t, 2, rooms.Rooms[0].MemberCount)

	// outsiders do not see other people's rooms
	carol := srv.client(t)
	carol.signup("carol")
	var carolRooms roomList
	require.Equal(t, http.StatusOK, carol.get("/api/rooms", &carolRooms))
	assert.Empty(t, carolRooms.Rooms)

	// text: both members, sender included, see the same delivery
	require.NoError(t, wsA.WriteMessage(websocket.TextMessage, []byte(`{"message":"hi bob"}`)))
	for _, ws := range []*websocket.Conn{wsA, wsB} {
		var got app.ChatMessageDelivered
		readJSON(t, ws, &got)
		assert.Equal(t, app.ChatMessageDelivered{Sender: "alice", Receiver: "bob", Message: "hi bob"}, got)
	}

	// audio from the other side
	clip := []byte{0x1a, 0x45, 0xdf, 0xa3}
	frame, err := json.Marshal(map[string]string{"audio": base64.StdEncoding.EncodeToString(clip)})
	require.NoError(t, err)
	require.NoError(t, wsB.WriteMessage(websocket.TextMessage, frame))
	var audioURL string
	for _, ws := range []*websocket.Conn{wsA, wsB} {
		var got app.ChatAudioMessageDelivered
		readJSON(t, ws, &got)
		assert.Equal(t, "bob", got.Sender)
		assert.Equal(t, "alice", got.Receiver)
		assert.True(t, strings.HasPrefix(got.AudioURL, "/media/audio/"), got.AudioURL)
		assert.True(t, strings.HasSuffix(got.AudioURL, ".webm"), got.AudioURL)
		audioURL = got.AudioURL
	}

	resp, err := alice.http.Get(srv.URL + audioURL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, clip, body)

	// unrecognized event is answered, the session survives
	require.NoError(t, wsA.WriteMessage(websocket.TextMessage, []byte(`{"typing":true}`)))
	var errFrame map[string]string
	readJSON(t, wsA, &errFrame)
	assert.Equal(t, "unrecognized_event", errFrame["error"])

	var hist struct {
		Room  string        `json:"room_name"`
		Chats []messageView `json:"chats"`
	}
	require.Equal(t, http.StatusOK, alice.get("/api/chat/bob", &hist))
	require.Len(t, hist.Chats, 2)
	assert.Equal(t, "hi bob", hist.Chats[0].Content)
	assert.Equal(t, domain.AudioPlaceholder, hist.Chats[1].Content)
	assert.Equal(t, audioURL, hist.Chats[1].AudioURL)
	assert.True(t, strings.HasSuffix(hist.Chats[0].LocalTime, "+05:30"), hist.Chats[0].LocalTime)

	var searched struct {
		Chats []messageView `json:"chats"`
	}
	require.Equal(t, http.StatusOK, bob.get("/api/chat/alice?search=HI", &searched))
	require.Len(t, searched.Chats, 1)
	assert.Equal(t, "alice", searched.Chats[0].Sender)

	var contacts struct {
		Contacts []contactView `json:"user_last_messages"`
	}
	require.Equal(t, http.StatusOK, alice.get("/api/contacts", &contacts))
	require.Len(t, contacts.Contacts, 2)
	assert.Equal(t, "bob", contacts.Contacts[0].User.Username)
	require.NotNil(t, contacts.Contacts[0].LastMessage)
	assert.Equal(t, audioURL, contacts.Contacts[0].LastMessage.AudioURL)
	assert.Equal(t, "carol", contacts.Contacts[1].User.Username)
	assert.Nil(t, contacts.Contacts[1].LastMessage)
}

func TestRouter_MediaRejectsHiddenAndMissing(t *testing.T) {
	srv := newTestServer(t)
	c := srv.client(t)

	assert.Equal(t, http.StatusNotFound, c.get("/media/audio/missing.webm", nil))
	assert.Equal(t, http.StatusBadRequest, c.get("/media/audio/.hidden", nil))
}
