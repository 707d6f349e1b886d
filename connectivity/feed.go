package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chatkit/core"
	"chatkit/protocol"

	"github.com/gorilla/websocket"
)

const (
	defaultHeartbeatInterval = 5 * time.Second
	writeTimeout             = 10 * time.Second
)

// FeedConfig configures the connectivity feed WebSocket client.
type FeedConfig struct {
	ConnectURL        string
	ClientID          string
	HeartbeatInterval time.Duration
	Logger            *core.Logger
}

// Feed is the client side of the environment's push-based connectivity
// signal. It dials the feed endpoint, registers itself, and forwards every
// connectivity announcement into a Monitor. Losing the feed connection is
// itself treated as going offline.
type Feed struct {
	config  FeedConfig
	monitor *Monitor
	conn    *websocket.Conn
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *core.Logger

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
}

// NewFeed creates a feed client that reports into the given monitor.
func NewFeed(cfg FeedConfig, monitor *Monitor) *Feed {
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = core.GetLogger()
	}
	return &Feed{
		config:  cfg,
		monitor: monitor,
		logger:  cfg.Logger.With(map[string]interface{}{"component": "connectivity-feed"}),
		done:    make(chan struct{}),
	}
}

// Connect dials the feed endpoint, sends the registration message, and
// starts the read and heartbeat loops. The provided context controls the
// feed's lifetime; cancelling it closes the connection.
func (f *Feed) Connect(ctx context.Context) error {
	f.ctx, f.cancel = context.WithCancel(ctx)

	f.logger.With(map[string]interface{}{"url": f.config.ConnectURL}).Info("connecting to connectivity feed")

	conn, _, err := websocket.DefaultDialer.DialContext(f.ctx, f.config.ConnectURL, nil)
	if err != nil {
		f.cancel()
		return fmt.Errorf("connectivity: dial %q: %w", f.config.ConnectURL, err)
	}
	f.conn = conn

	reg := protocol.RegisterPayload{
		ClientID:  f.config.ClientID,
		Timestamp: time.Now().UTC(),
	}
	if err := f.send(protocol.MsgRegister, reg); err != nil {
		conn.Close()
		f.cancel()
		return fmt.Errorf("connectivity: send register: %w", err)
	}

	// Connected at all means the environment is reachable.
	f.monitor.SetState(core.StateOnline)

	go f.readLoop()
	go f.heartbeatLoop()

	return nil
}

// Wait blocks until the feed connection drops or the context is cancelled.
func (f *Feed) Wait() {
	<-f.done
}

// Close shuts down the feed client.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		if f.cancel != nil {
			f.cancel()
		}
		if f.conn != nil {
			f.conn.Close()
		}
	})
}

func (f *Feed) send(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(websocket.TextMessage, data)
}

func (f *Feed) readLoop() {
	defer func() {
		f.doneOnce.Do(func() { close(f.done) })
		f.cancel()
		// Feed gone: the push signal is lost, assume offline until a
		// reconnect or a polling probe says otherwise.
		f.monitor.SetState(core.StateOffline)
	}()

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.logger.With(map[string]interface{}{"error": err}).Warn("connectivity feed lost")
			}
			return
		}

		msgType, payload, err := protocol.Unmarshal(data)
		if err != nil {
			f.logger.With(map[string]interface{}{"error": err}).Warn("invalid message on connectivity feed")
			continue
		}

		switch msgType {
		case protocol.MsgConnectivity:
			p, err := protocol.UnmarshalPayload[protocol.ConnectivityPayload](payload)
			if err != nil {
				f.logger.With(map[string]interface{}{"error": err}).Warn("invalid connectivity payload")
				continue
			}
			if p.Online {
				f.monitor.SetState(core.StateOnline)
			} else {
				f.monitor.SetState(core.StateOffline)
			}

		case protocol.MsgShutdown:
			p, _ := protocol.UnmarshalPayload[protocol.ShutdownPayload](payload)
			reason := p.Reason
			if reason == "" {
				reason = "shutdown requested by environment"
			}
			f.logger.With(map[string]interface{}{"reason": reason}).Info("connectivity feed shutdown")
			return

		default:
			f.logger.With(map[string]interface{}{"type": string(msgType)}).Warn("unknown message type on connectivity feed")
		}
	}
}

func (f *Feed) heartbeatLoop() {
	ticker := time.NewTicker(f.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hb := protocol.HeartbeatPayload{
				ClientID:  f.config.ClientID,
				Timestamp: time.Now().UTC(),
			}
			if err := f.send(protocol.MsgHeartbeat, hb); err != nil {
				f.logger.With(map[string]interface{}{"error": err}).Warn("heartbeat write failed")
				return
			}
		case <-f.ctx.Done():
			return
		}
	}
}
