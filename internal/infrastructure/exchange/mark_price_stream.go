package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// MarkPriceStream subscribes to the COIN-M markPrice stream of a pair and
// reconnects until its context is cancelled.
type MarkPriceStream struct {
	wsURL  string
	dialer *websocket.Dialer
	logger *zap.Logger

	ReadTimeout time.Duration
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

func NewMarkPriceStream(wsURL string, logger *zap.Logger) *MarkPriceStream {
	return &MarkPriceStream{
		wsURL:       strings.TrimRight(wsURL, "/"),
		dialer:      websocket.DefaultDialer,
		logger:      logger,
		ReadTimeout: 60 * time.Second,
		MinBackoff:  500 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
	}
}

// StreamURL returns the 1s pair stream for symbol, e.g. btcusd@markPrice@1s
// for BTCUSD_PERP. Every contract of the pair arrives in one array payload.
func (s *MarkPriceStream) StreamURL(symbol string) string {
	pair := symbol
	if i := strings.Index(symbol, "_"); i > 0 {
		pair = symbol[:i]
	}
	return fmt.Sprintf("%s/ws/%s@markPrice@1s", s.wsURL, strings.ToLower(pair))
}

// Subscribe blocks, passing every payload to handler, until ctx is done.
func (s *MarkPriceStream) Subscribe(ctx context.Context, symbol string, handler func(payload []byte)) error {
	url := s.StreamURL(symbol)
	logger := s.logger.With(zap.String("symbol", symbol), zap.String("url", url))

	b := &backoff.Backoff{Min: s.MinBackoff, Max: s.MaxBackoff, Factor: 2, Jitter: true}
	for {
		received, err := s.readUntilError(ctx, url, handler)
		if ctx.Err() != nil {
			logger.Info("Mark price stream stopped")
			return nil
		}
		if received {
			b.Reset()
		}

		wait := b.Duration()
		logger.Warn("Mark price stream disconnected, reconnecting",
			zap.Error(err), zap.Duration("backoff", wait))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// readUntilError reports whether at least one message arrived before the
// connection failed.
func (s *MarkPriceStream) readUntilError(ctx context.Context, url string, handler func([]byte)) (bool, error) {
	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	s.logger.Debug("Mark price stream connected", zap.String("url", url))

	// unblock ReadMessage on shutdown
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	// the server pings every few minutes; gorilla answers with a pong
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	received := false
	for {
		conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return received, err
		}
		received = true
		handler(message)
	}
}
