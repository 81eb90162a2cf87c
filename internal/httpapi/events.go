package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/pragma-notes/pragma/internal/repo"
)

// eventMessage is the wire envelope for the change feed.
type eventMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Change    repo.Change `json:"change"`
}

// Broadcaster fans committed changes out to WebSocket subscribers. It
// implements repo.ChangeListener; the repo worker hands it changes inline,
// so delivery is a non-blocking channel send and slow consumers lose
// messages rather than stalling writes.
type Broadcaster struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan repo.Change

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger zerolog.Logger
}

// NewBroadcaster starts the fan-out loop. Call Close to stop it.
func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Broadcaster{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan repo.Change, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	b.wg.Add(1)
	go b.broadcastLoop()

	return b
}

// NotifyChange implements repo.ChangeListener.
func (b *Broadcaster) NotifyChange(change repo.Change) {
	select {
	case b.broadcast <- change:
	case <-b.ctx.Done():
	default:
		b.logger.Warn().Msg("event channel full, dropping change")
	}
}

// Close disconnects all clients and stops the fan-out loop.
func (b *Broadcaster) Close() {
	b.cancel()

	b.clientsMu.Lock()
	for conn := range b.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(b.clients, conn)
	}
	b.clientsMu.Unlock()

	b.wg.Wait()
}

// ClientCount returns the number of connected subscribers.
func (b *Broadcaster) ClientCount() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) broadcastLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return

		case change := <-b.broadcast:
			payload, err := json.Marshal(eventMessage{
				Type:      "change",
				Timestamp: time.Now().UTC(),
				Change:    change,
			})
			if err != nil {
				b.logger.Error().Err(err).Msg("failed to marshal event")
				continue
			}

			b.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(b.clients))
			for conn := range b.clients {
				conns = append(conns, conn)
			}
			b.clientsMu.RUnlock()

			for _, conn := range conns {
				writeCtx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
				err := conn.Write(writeCtx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					b.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades the connection and registers the subscriber.
// Auth already happened in the middleware chain.
func (b *Broadcaster) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	b.clientsMu.Lock()
	b.clients[conn] = true
	total := len(b.clients)
	b.clientsMu.Unlock()

	b.logger.Info().Int("clients", total).Msg("event subscriber connected")

	go b.readLoop(conn)
}

// readLoop discards client frames and notices disconnects.
func (b *Broadcaster) readLoop(conn *websocket.Conn) {
	defer b.removeClient(conn)

	for {
		if _, _, err := conn.Read(b.ctx); err != nil {
			return
		}
	}
}

func (b *Broadcaster) removeClient(conn *websocket.Conn) {
	b.clientsMu.Lock()
	_, exists := b.clients[conn]
	if exists {
		delete(b.clients, conn)
	}
	total := len(b.clients)
	b.clientsMu.Unlock()

	if exists {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		b.logger.Info().Int("clients", total).Msg("event subscriber disconnected")
	}
}
