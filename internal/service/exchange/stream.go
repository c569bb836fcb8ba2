package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

const defaultStreamURL = "wss://stream.binance.com:9443/ws/!miniTicker@arr"

// PriceStream keeps a live last-price map fed by the Binance miniTicker
// WebSocket feed. Collection reads from it first and falls back to REST when
// the stream has no quote for a symbol.
type PriceStream struct {
	logger  *logger.Logger
	metrics repository.Metrics

	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.RWMutex
	conn      *websocket.Conn
	prices    map[string]float64
	connected bool
}

// NewPriceStream creates a disconnected stream. Run starts it.
func NewPriceStream(lgr *logger.Logger, metrics repository.Metrics, reconnectDelay, pingInterval time.Duration) *PriceStream {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &PriceStream{
		logger:         lgr,
		metrics:        metrics,
		url:            defaultStreamURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		prices:         make(map[string]float64),
	}
}

// Run connects and reads until the context is cancelled, reconnecting after
// every failure. It blocks, so callers start it in its own goroutine.
func (s *PriceStream) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		default:
		}

		if err := s.connect(ctx); err != nil {
			s.logger.Warn("price stream connect failed", logger.Error(err))
			s.metrics.RecordError("price_stream_connect")
			if !s.sleep(ctx, s.reconnectDelay) {
				return
			}
			continue
		}

		s.readLoop(ctx)

		_ = s.Close()
		if !s.sleep(ctx, s.reconnectDelay) {
			return
		}
	}
}

func (s *PriceStream) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("price stream dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.logger.Info("price stream connected", logger.String("url", s.url))
	return nil
}

type miniTicker struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

func (s *PriceStream) readLoop(ctx context.Context) {
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.pingLoop(pingCtx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("price stream read failed", logger.Error(err))
				s.metrics.RecordError("price_stream_read")
			}
			return
		}

		var tickers []miniTicker
		if err := json.Unmarshal(frame, &tickers); err != nil {
			// non-ticker frames (subscription acks etc.) are expected
			continue
		}
		s.apply(tickers)
	}
}

func (s *PriceStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (s *PriceStream) apply(tickers []miniTicker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tickers {
		price, err := strconv.ParseFloat(t.Close, 64)
		if err != nil || price <= 0 {
			continue
		}
		s.prices[t.Symbol] = price
		s.metrics.RecordLastPrice(t.Symbol, price)
	}
}

// Prices returns a snapshot copy of the live price map.
func (s *PriceStream) Prices() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.prices))
	for k, v := range s.prices {
		out[k] = v
	}
	return out
}

// Price returns the live price of one symbol if the stream has seen it.
func (s *PriceStream) Price(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[symbol]
	return price, ok
}

// Exchange returns the venue this stream quotes. The miniTicker feed is
// Binance only; other exchanges must use their REST tickers.
func (s *PriceStream) Exchange() string {
	return "binance"
}

// IsConnected reports the connection state.
func (s *PriceStream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Close tears down the connection.
func (s *PriceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *PriceStream) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
