// Package feed keeps a single push connection to the live trade feed,
// subscribes every tracked symbol on each open, applies trade events to a
// sink and reconnects after every disconnect.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"MarketTraffic/internal/model"
)

// DefaultReconnectDelay is the pause between a disconnect and the next
// connection attempt.
const DefaultReconnectDelay = 3 * time.Second

// State is the connection state of the Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Subscribed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// SymbolSource lists the codes to subscribe on every open.
type SymbolSource interface {
	Codes() []string
}

// TradeSink receives trade entries.
type TradeSink interface {
	ApplyTrade(t model.Trade) bool
}

type subscribeMsg struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) { m.reconnectDelay = d }
}

// WithAfter replaces the timer used to wait before reconnecting.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(m *Manager) { m.after = after }
}

// WithStateHook registers fn to be called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(m *Manager) { m.onState = fn }
}

// Manager owns the feed connection and its reconnect loop.
type Manager struct {
	url     string
	dialer  Dialer
	symbols SymbolSource
	sink    TradeSink
	log     *zap.Logger

	reconnectDelay time.Duration
	after          func(time.Duration) <-chan time.Time
	onState        func(State)

	// subMu serialises the open-time subscribe pass with Subscribe, so a
	// code tracked during the pass is either in its snapshot or sent after
	// it.
	subMu sync.Mutex

	mu      sync.Mutex
	state   State
	conn    Conn
	sent    map[string]bool
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a Manager. Nothing is dialed until Start.
func NewManager(url string, dialer Dialer, symbols SymbolSource, sink TradeSink, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		url:            url,
		dialer:         dialer,
		symbols:        symbols,
		sink:           sink,
		log:            log,
		reconnectDelay: DefaultReconnectDelay,
		after:          time.After,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the connect/subscribe/read/reconnect loop in the background.
// Calling Start more than once, or after Stop, has no effect.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(ctx)
	go m.run(ctx)
}

// Stop closes the transport once and prevents further reconnects. It
// waits for the background loop to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	conn := m.conn
	m.conn = nil
	cancel := m.cancel
	started := m.started
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Debug("closing feed", zap.Error(err))
		}
	}
	if cancel != nil {
		cancel()
	}
	if started {
		<-m.done
	}
	m.setState(Disconnected)
	m.log.Info("feed stopped")
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the feed is open and subscribed.
func (m *Manager) Connected() bool {
	return m.State() == Subscribed
}

// Subscribe sends one subscribe directive for code if the feed is
// subscribed. A call made while the open-time subscribe pass runs waits for
// it. Codes already subscribed on the current connection are not sent
// again. While disconnected or dialing it does nothing and returns false;
// the code is picked up on the next open.
func (m *Manager) Subscribe(code string) bool {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.mu.Lock()
	conn := m.conn
	ok := m.state == Subscribed && conn != nil
	already := m.sent[code]
	m.mu.Unlock()
	if !ok {
		return false
	}
	if already {
		return true
	}
	if err := conn.WriteJSON(subscribeMsg{Type: "subscribe", Symbol: code}); err != nil {
		m.log.Error("feed subscribe failed", zap.String("symbol", code), zap.Error(err))
		return false
	}
	m.mu.Lock()
	if m.conn == conn && m.sent != nil {
		m.sent[code] = true
	}
	m.mu.Unlock()
	return true
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	for {
		if ctx.Err() != nil || m.isStopped() {
			return
		}
		m.setState(Connecting)

		conn, err := m.dialer.Dial(ctx, m.url)
		if err != nil {
			m.log.Error("feed connect failed", zap.Error(err))
		} else if m.attach(conn) {
			m.subscribeAll(conn)
			m.readLoop(conn)
			m.detach(conn)
		} else {
			conn.Close()
			return
		}

		if m.isStopped() {
			return
		}
		m.setState(Disconnected)
		m.log.Info("feed disconnected, retrying", zap.Duration("delay", m.reconnectDelay))

		select {
		case <-ctx.Done():
			return
		case <-m.after(m.reconnectDelay):
		}
	}
}

// attach records conn as the live connection unless Stop already ran.
func (m *Manager) attach(conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.conn = conn
	return true
}

// detach drops conn and closes it, unless Stop already took and closed it.
func (m *Manager) detach(conn Conn) {
	m.mu.Lock()
	owned := m.conn == conn
	if owned {
		m.conn = nil
		m.sent = nil
	}
	m.mu.Unlock()
	if owned {
		conn.Close()
	}
}

// subscribeAll sends one directive per tracked code and then marks the
// feed Subscribed, all under subMu.
func (m *Manager) subscribeAll(conn Conn) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	codes := m.symbols.Codes()
	sent := make(map[string]bool, len(codes))
	for _, code := range codes {
		if err := conn.WriteJSON(subscribeMsg{Type: "subscribe", Symbol: code}); err != nil {
			m.log.Error("feed subscribe failed", zap.String("symbol", code), zap.Error(err))
			continue
		}
		sent[code] = true
	}
	m.mu.Lock()
	live := m.conn == conn
	if live {
		m.sent = sent
	}
	m.mu.Unlock()
	if !live {
		return
	}
	m.setState(Subscribed)
	m.log.Info("feed connected", zap.Int("symbols", len(codes)))
}

func (m *Manager) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if !m.isStopped() {
				m.log.Warn("feed transport error", zap.Error(err))
			}
			return
		}
		m.handleMessage(data)
	}
}

// handleMessage applies every entry of a trade message. Other message
// kinds, such as pings, are ignored.
func (m *Manager) handleMessage(data []byte) {
	if !gjson.ValidBytes(data) {
		m.log.Warn("feed message is not valid JSON", zap.ByteString("data", data))
		return
	}
	msg := gjson.ParseBytes(data)
	if msg.Get("type").String() != "trade" {
		return
	}
	entries := msg.Get("data")
	if !entries.IsArray() {
		return
	}
	entries.ForEach(func(_, e gjson.Result) bool {
		var price *float64
		if p := e.Get("p"); p.Type == gjson.Number {
			v := p.Float()
			price = &v
		}
		m.sink.ApplyTrade(model.Trade{
			Price:  price,
			Volume: e.Get("v").Float(),
			Code:   e.Get("s").String(),
		})
		return true
	})
}

func (m *Manager) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	fn := m.onState
	m.mu.Unlock()
	if changed && fn != nil {
		fn(s)
	}
}
