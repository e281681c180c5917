package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/observability"
)

// FeedConfig configures websocket feed behavior.
type FeedConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the batch channel capacity.
	Buffer int
}

// DefaultFeedConfig returns the default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            64,
	}
}

// Feed is a BatchSource reading track batches from a websocket endpoint.
// It reconnects with exponential backoff on read errors; batches are
// never dropped, the reader blocks when the consumer falls behind.
type Feed struct {
	endpoint string
	config   FeedConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	batches chan *domain.Batch

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// Compile-time interface check.
var _ BatchSource = (*Feed)(nil)

// NewFeed creates a feed and connects to the endpoint.
func NewFeed(ctx context.Context, endpoint string, config *FeedConfig) (*Feed, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}

	f := &Feed{
		endpoint: endpoint,
		config:   cfg,
		batches:  make(chan *domain.Batch, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

// Next returns the next batch from the feed.
func (f *Feed) Next(ctx context.Context) (*domain.Batch, error) {
	select {
	case b, ok := <-f.batches:
		if !ok {
			return nil, ErrSourceDrained
		}
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the websocket connection and drains the feed.
func (f *Feed) Close() error {
	if f.closed.Swap(true) {
		return nil // already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.batches)
	return nil
}

// connect establishes the websocket connection.
func (f *Feed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// readLoop reads messages from the websocket and delivers batches.
func (f *Feed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect waits out the backoff delay and re-establishes the connection.
func (f *Feed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// On failure the read loop triggers the next attempt.
	_ = f.connect(ctx)
}

// handleMessage decodes a feed message and delivers the batch.
func (f *Feed) handleMessage(message []byte) {
	start := time.Now()

	var msg feedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		observability.RecordIngestionError("decode")
		return
	}

	batch := msg.toBatch()
	if err := ValidateBatch(batch); err != nil {
		observability.RecordIngestionError("validate")
		return
	}
	SortTracks(batch.Tracks)

	observability.DefaultMetrics.BatchesIngested.Inc()
	observability.DefaultMetrics.TracksIngested.Add(float64(len(batch.Tracks)))
	observability.DefaultMetrics.HighestRunSeen.Set(float64(batch.RunNumber))
	observability.DefaultMetrics.FeedMessageLag.Observe(time.Since(start).Seconds())

	// Block until the consumer takes the batch; never drop.
	select {
	case f.batches <- batch:
	case <-f.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				// A dead connection surfaces in the read loop.
				_ = f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}

// Feed wire format. One message per batch.

type feedMessage struct {
	RunNumber  int32           `json:"run_number"`
	Timestamp  int64           `json:"timestamp"`
	Tracks     []feedTrack     `json:"tracks"`
	Collisions []feedCollision `json:"collisions"`
}

type feedTrack struct {
	Index       int     `json:"index"`
	CollisionID *int64  `json:"collision_id"`
	P           float64 `json:"p"`
	Eta         float64 `json:"eta"`
	Sign        int8    `json:"sign"`
	Length      float64 `json:"length"`
	TOFExpMom   float64 `json:"tof_exp_mom"`
	TOFSignal   float64 `json:"tof_signal"`
	HasTOF      bool    `json:"has_tof"`
	HasTPC      bool    `json:"has_tpc"`
	HasITS      bool    `json:"has_its"`
	Type        uint8   `json:"type"`
}

type feedCollision struct {
	ID        int64   `json:"id"`
	Time      float64 `json:"time"`
	TimeRes   float64 `json:"time_res"`
	Selected  bool    `json:"selected"`
	HasFT0    bool    `json:"has_ft0"`
	T0ACValid bool    `json:"t0ac_valid"`
	T0AC      float64 `json:"t0ac"`
	T0ACRes   float64 `json:"t0ac_res"`
}

func (m *feedMessage) toBatch() *domain.Batch {
	b := &domain.Batch{
		RunNumber:  m.RunNumber,
		Timestamp:  m.Timestamp,
		Tracks:     make([]domain.Track, 0, len(m.Tracks)),
		Collisions: make(map[int64]*domain.Collision, len(m.Collisions)),
	}

	for _, c := range m.Collisions {
		b.Collisions[c.ID] = &domain.Collision{
			ID:        c.ID,
			Time:      c.Time,
			TimeRes:   c.TimeRes,
			Selected:  c.Selected,
			HasFT0:    c.HasFT0,
			T0ACValid: c.T0ACValid,
			T0AC:      c.T0AC,
			T0ACRes:   c.T0ACRes,
		}
	}

	for _, t := range m.Tracks {
		collisionID := domain.NoCollision
		if t.CollisionID != nil {
			collisionID = *t.CollisionID
		}
		b.Tracks = append(b.Tracks, domain.Track{
			Index:       t.Index,
			CollisionID: collisionID,
			P:           t.P,
			Eta:         t.Eta,
			Sign:        t.Sign,
			Length:      t.Length,
			TOFExpMom:   t.TOFExpMom,
			TOFSignal:   t.TOFSignal,
			HasTOF:      t.HasTOF,
			HasTPC:      t.HasTPC,
			HasITS:      t.HasITS,
			Type:        domain.TrackType(t.Type),
		})
	}

	return b
}
