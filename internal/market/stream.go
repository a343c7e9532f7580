package market

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// TradeStream keeps the price cache fresh from the upstream trade
// websocket. Connection loss triggers reconnect with backoff; the stream
// never fails the pipeline, it only degrades price freshness.
type TradeStream struct {
	streamURL string
	symbols   []string
	cache     *DataCache
	log       zerolog.Logger

	onPrice func(symbol string, price float64)

	mu         sync.Mutex
	conn       *websocket.Conn
	running    bool
	stopChan   chan struct{}
	reconnects int
}

type tradeEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

// NewTradeStream creates a stream for the given symbols.
func NewTradeStream(streamURL string, symbols []string, cache *DataCache, log zerolog.Logger) *TradeStream {
	return &TradeStream{
		streamURL: streamURL,
		symbols:   symbols,
		cache:     cache,
		log:       log.With().Str("component", "trade_stream").Logger(),
		stopChan:  make(chan struct{}),
	}
}

// SetPriceCallback registers a hook invoked on every trade, after the
// cache update.
func (s *TradeStream) SetPriceCallback(cb func(symbol string, price float64)) {
	s.onPrice = cb
}

// Start begins the connect/read loop in the background.
func (s *TradeStream) Start() {
	s.mu.Lock()
	if s.running || len(s.symbols) == 0 {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.connectLoop()
	s.log.Info().Int("symbols", len(s.symbols)).Msg("Trade stream started")
}

// Stop closes the stream and waits for the read loop to exit.
func (s *TradeStream) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	s.log.Info().Msg("Trade stream stopped")
}

func (s *TradeStream) connectLoop() {
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(s.url(), nil)
		if err != nil {
			s.mu.Lock()
			s.reconnects++
			attempts := s.reconnects
			s.mu.Unlock()

			backoff := time.Duration(attempts) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			s.log.Warn().Err(err).Dur("backoff", backoff).Msg("Stream dial failed, retrying")

			select {
			case <-time.After(backoff):
				continue
			case <-s.stopChan:
				return
			}
		}

		s.mu.Lock()
		s.conn = conn
		s.reconnects = 0
		s.mu.Unlock()

		s.readLoop(conn)

		select {
		case <-s.stopChan:
			return
		default:
			s.log.Warn().Msg("Stream connection lost, reconnecting in 3s")
			time.Sleep(3 * time.Second)
		}
	}
}

func (s *TradeStream) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(message)
	}
}

func (s *TradeStream) handleMessage(message []byte) {
	// Combined streams wrap the payload in {"stream": ..., "data": ...}.
	var combined struct {
		Data json.RawMessage `json:"data"`
	}
	payload := message
	if err := json.Unmarshal(message, &combined); err == nil && len(combined.Data) > 0 {
		payload = combined.Data
	}

	var ev tradeEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.EventType != "trade" {
		return
	}

	price, err := strconv.ParseFloat(ev.Price, 64)
	if err != nil || price <= 0 {
		return
	}

	s.cache.PutPrice(ev.Symbol, price)
	if s.onPrice != nil {
		s.onPrice(ev.Symbol, price)
	}
}

// url builds the combined-stream subscription URL for all symbols.
func (s *TradeStream) url() string {
	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	return fmt.Sprintf("%s/stream?streams=%s", strings.TrimSuffix(s.streamURL, "/ws"), strings.Join(streams, "/"))
}
