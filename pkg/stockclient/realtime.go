package stockclient

import (
	"context"
	"time"

	"github.com/fasthttp/websocket"
	"go.uber.org/zap"
)

// Listener subscribes to the server's row-level change feed and feeds every
// event into the store, where it overwrites local state unconditionally.
// Events are applied in arrival order; the transport delivers them in commit
// order.
type Listener struct {
	url    string
	store  *Store
	logger *zap.Logger
}

func NewListener(wsURL string, store *Store, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{url: wsURL, store: store, logger: logger}
}

// Run connects and pumps events until the context is cancelled, reconnecting
// with a fixed delay after transport errors.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
		if err != nil {
			l.logger.Warn("change feed dial failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
				continue
			}
		}

		l.logger.Info("change feed connected", zap.String("url", l.url))
		l.pump(ctx, conn)
		conn.Close()
	}
}

func (l *Listener) pump(ctx context.Context, conn *websocket.Conn) {
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
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Warn("change feed read failed", zap.Error(err))
			}
			return
		}
		// Malformed payloads are dropped inside ApplyChange.
		l.store.ApplyChange(raw)
	}
}
