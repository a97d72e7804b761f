package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/livefeed/pkg/connection"
)

var upgrader = websocket.Upgrader{}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestDialSendsBearerAndReadsFrames(t *testing.T) {
	gotAuth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`["project:created",{"id":"p1"}]`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"worker:added","data":{}}`))
		// Wait for the client to go away.
		_, _, _ = ws.ReadMessage()
	}))
	defer srv.Close()

	d := NewDialer(wsURL(srv), WithPingInterval(0))
	c, err := d.Dial(context.Background(), "secret")
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "Bearer secret", <-gotAuth)

	first, err := c.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `["project:created",{"id":"p1"}]`, string(first))

	second, err := c.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"worker:added","data":{}}`, string(second))
}

func TestDialMapsAuthStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", status)
			}))
			defer srv.Close()

			_, err := NewDialer(wsURL(srv)).Dial(context.Background(), "bad")
			assert.ErrorIs(t, err, connection.ErrUnauthorized)
		})
	}
}

func TestDialOtherFailuresAreNotAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewDialer(wsURL(srv)).Dial(context.Background(), "token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, connection.ErrUnauthorized)

	_, err = NewDialer("ws://127.0.0.1:1/feed").Dial(context.Background(), "token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, connection.ErrUnauthorized)
}

func TestCloseUnblocksRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_, _, _ = ws.ReadMessage()
	}))
	defer srv.Close()

	c, err := NewDialer(wsURL(srv)).Dial(context.Background(), "token")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.ReadMessage()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("read was not unblocked")
	}
}

func TestManagerOverWebsocket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`["material:completed",{"id":"m1"}]`))
		_, _, _ = ws.ReadMessage()
	}))
	defer srv.Close()

	m := connection.NewManager(NewDialer(wsURL(srv)), connection.DefaultConfig())
	defer m.Disconnect()

	got := make(chan connection.Event, 4)
	m.AddEventListener(connection.AnyEvent, func(ev connection.Event) { got <- ev })

	require.NoError(t, m.Connect(context.Background(), "token"))

	select {
	case ev := <-got:
		assert.Equal(t, "material:completed", ev.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no event dispatched")
	}
}
