package websocket

import (
	"context"
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/codec"
	"github.com/Avi18971911/SpanTree/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"time"
)

const handshakeTimeout = 10 * time.Second

// Feed reads codec-encoded messages, one per frame, from a websocket server.
type Feed struct {
	url      string
	dialer   *websocket.Dialer
	ingester session.Ingester
	logger   *zap.Logger
}

func NewFeed(url string, ingester session.Ingester, logger *zap.Logger) *Feed {
	return &Feed{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		ingester: ingester,
		logger:   logger,
	}
}

// Run reads frames until the server closes the connection or ctx is done. Frames that fail to
// decode are logged and skipped.
func (f *Feed) Run(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial websocket %s: %w", f.url, err)
	}
	defer conn.Close()
	f.logger.Info("Connected to websocket feed", zap.String("url", f.url))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.logger.Info("Websocket feed closed by server", zap.String("url", f.url))
				return nil
			}
			return fmt.Errorf("failed to read from websocket %s: %w", f.url, err)
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		message, err := codec.Decode(data)
		if err != nil {
			f.logger.Warn("Skipping undecodable websocket frame", zap.Error(err))
			continue
		}
		f.ingester.Enqueue(message)
	}
}
