package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedServer upgrades one connection, checks the subscribe request,
// then replays frames.
func feedServer(t *testing.T, frames []wsFrame) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub wsSubscribe
		if err := conn.ReadJSON(&sub); err != nil || sub.Type != "subscribe" {
			return
		}
		for _, f := range frames {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSFeedSource_Fetch(t *testing.T) {
	srv := feedServer(t, []wsFrame{
		{Type: "listing", Listing: &wireListing{URL: "u1", Title: "in window", PostedAt: 150}},
		{Type: "listing", Listing: &wireListing{URL: "u2", Title: "before window", PostedAt: 50}},
		{Type: "heartbeat"},
		{Type: "listing", Listing: &wireListing{URL: "u3", Title: "also in", PostedAt: 190}},
		{Type: "end"},
	})
	defer srv.Close()

	src := NewWSFeedSource("livefeed", wsURL(srv), nil)
	got, err := src.Fetch(context.Background(), 100, 200)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].URL)
	assert.Equal(t, "u3", got[1].URL)
	assert.Equal(t, "livefeed", got[0].Source)
}

func TestWSFeedSource_ServerCloseEndsBatch(t *testing.T) {
	srv := feedServer(t, []wsFrame{
		{Type: "listing", Listing: &wireListing{URL: "u1", Title: "t", PostedAt: 150}},
	})
	defer srv.Close()

	src := NewWSFeedSource("livefeed", wsURL(srv), nil)
	got, err := src.Fetch(context.Background(), 100, 200)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWSFeedSource_DialFailure(t *testing.T) {
	src := NewWSFeedSource("livefeed", "ws://127.0.0.1:1/feed", nil)
	_, err := src.Fetch(context.Background(), 100, 200)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source livefeed")
}
