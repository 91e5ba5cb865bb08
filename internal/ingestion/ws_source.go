package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"hifi-market-lab/internal/domain"
)

const (
	// wsReadTimeout bounds the wait for each frame; a quiet feed ends
	// the batch rather than hanging the run.
	wsReadTimeout = 5 * time.Second

	// wsMaxBatch caps how many listings one Fetch drains from a live
	// feed.
	wsMaxBatch = 1000
)

// wsFrame is one message from a live listing feed.
type wsFrame struct {
	Type    string       `json:"type"` // "listing" or "end"
	Listing *wireListing `json:"listing,omitempty"`
}

// wsSubscribe is the request sent after dialing.
type wsSubscribe struct {
	Type  string `json:"type"` // always "subscribe"
	Since int64  `json:"since"`
}

// WSFeedSource drains a live WebSocket listing feed in batches. Unlike
// the HTTP adapter it receives pushes, so Fetch reads until the feed
// signals the end of the backlog, goes quiet, or the batch cap hits.
type WSFeedSource struct {
	name string
	url  string
	log  *logrus.Entry
}

// NewWSFeedSource creates a WSFeedSource for a ws:// or wss:// URL.
func NewWSFeedSource(name, feedURL string, logger *logrus.Logger) *WSFeedSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WSFeedSource{
		name: name,
		url:  feedURL,
		log:  logger.WithField("source", name),
	}
}

// Name identifies the source.
func (s *WSFeedSource) Name() string { return s.name }

// Fetch dials the feed, subscribes from the window start, and drains
// listing frames posted within [from, to].
func (s *WSFeedSource) Fetch(ctx context.Context, from, to int64) ([]*domain.RawListing, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("source %s: dial %s: %w", s.name, s.url, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsSubscribe{Type: "subscribe", Since: from}); err != nil {
		return nil, fmt.Errorf("source %s: subscribe: %w", s.name, err)
	}

	var out []*domain.RawListing
	for len(out) < wsMaxBatch {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			return nil, fmt.Errorf("source %s: %w", s.name, err)
		}

		var frame wsFrame
		err := conn.ReadJSON(&frame)
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.log.Debug("feed quiet, ending batch")
				break
			}
			return nil, fmt.Errorf("source %s: read: %w", s.name, err)
		}

		switch frame.Type {
		case "listing":
			if frame.Listing == nil {
				continue
			}
			if frame.Listing.PostedAt < from || frame.Listing.PostedAt > to {
				continue
			}
			out = append(out, frame.Listing.toDomain(s.name))
		case "end":
			return out, nil
		default:
			s.log.WithField("type", frame.Type).Debug("ignoring frame")
		}
	}
	return out, nil
}

// Verify interface compliance at compile time.
var _ Source = (*WSFeedSource)(nil)
