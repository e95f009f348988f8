package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"sbwatch/internal/model"
)

// Stream subscribes to the live market-data websocket and normalizes price
// updates into observations.
type Stream struct {
	URL          string
	APIKey       string
	Dataset      string
	Schema       string
	Symbol       string
	PriceDivisor float64
}

func NewStream(wsURL, apiKey, dataset, schema, symbol string, divisor float64) *Stream {
	if divisor <= 0 {
		divisor = 1
	}
	return &Stream{
		URL:          wsURL,
		APIKey:       apiKey,
		Dataset:      dataset,
		Schema:       schema,
		Symbol:       symbol,
		PriceDivisor: divisor,
	}
}

type subscribeMsg struct {
	Action  string `json:"action"`
	Key     string `json:"key,omitempty"`
	Dataset string `json:"dataset"`
	Schema  string `json:"schema"`
	Symbol  string `json:"symbol"`
}

// wireUpdate is a single price update on the wire. Prices arrive as
// fixed-point values scaled by the dataset divisor.
type wireUpdate struct {
	TsEventMs int64   `json:"ts_ms"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
}

// Observations connects, subscribes and streams normalized observations
// until ctx is cancelled, reconnecting with backoff on read errors. The
// channel closes when ctx ends.
func (s *Stream) Observations(ctx context.Context) <-chan model.Observation {
	out := make(chan model.Observation, 256)
	go func() {
		defer close(out)
		backoff := time.Second
		for {
			if err := s.pump(ctx, out); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[WARN] feed stream: %v, reconnecting in %v", err, backoff)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
	return out
}

func (s *Stream) pump(ctx context.Context, out chan<- model.Observation) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.URL, err)
	}
	defer conn.Close()

	sub := subscribeMsg{
		Action:  "subscribe",
		Key:     s.APIKey,
		Dataset: s.Dataset,
		Schema:  s.Schema,
		Symbol:  s.Symbol,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Printf("[INFO] feed subscribed: dataset=%s schema=%s symbol=%s", s.Dataset, s.Schema, s.Symbol)

	// Unblock ReadMessage on shutdown. The watcher must die with this
	// connection, not with the stream: pump runs once per reconnect.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var u wireUpdate
		if err := json.Unmarshal(data, &u); err != nil {
			log.Printf("[WARN] feed: skipping malformed message: %v", err)
			continue
		}
		if u.TsEventMs == 0 {
			continue
		}
		obs := model.Observation{
			Time:   time.UnixMilli(u.TsEventMs).UTC(),
			Price:  u.Price / s.PriceDivisor,
			Volume: u.Size,
		}
		select {
		case out <- obs:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
