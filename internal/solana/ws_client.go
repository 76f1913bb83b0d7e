package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// RequestTimeout bounds waiting for subscribe/unsubscribe responses.
	RequestTimeout time.Duration
	// NotificationBuffer sizes the notification channel. Blocking send
	// ensures no event loss; the buffer absorbs bursts.
	NotificationBuffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval:       30 * time.Second,
		ReadTimeout:        60 * time.Second,
		WriteTimeout:       10 * time.Second,
		RequestTimeout:     30 * time.Second,
		NotificationBuffer: 10000,
	}
}

// WSStream implements LogStream over a single gorilla/websocket
// connection speaking the Solana JSON-RPC pub/sub protocol.
type WSStream struct {
	conn   *websocket.Conn
	config WSConfig

	writeMu   sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// pending maps request ID to channel waiting for an RPC response
	pending   map[uint64]chan rpcResult
	pendingMu sync.Mutex

	notifs chan LogNotification

	done chan struct{}
	wg   sync.WaitGroup
}

// Dial connects to a Solana WebSocket endpoint.
func Dial(ctx context.Context, endpoint string, config *WSConfig) (*WSStream, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &WSStream{
		conn:    conn,
		config:  cfg,
		pending: make(map[uint64]chan rpcResult),
		notifs:  make(chan LogNotification, cfg.NotificationBuffer),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

var _ LogStream = (*WSStream)(nil)

// SubscribeLogs subscribes to logs mentioning any address in the filter.
func (s *WSStream) SubscribeLogs(ctx context.Context, filter LogsFilter) (int64, error) {
	mentionsFilter := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentionsFilter["mentions"] = filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}

	result, err := s.call(ctx, "logsSubscribe", []interface{}{
		mentionsFilter,
		map[string]string{"commitment": "confirmed"},
	})
	if err != nil {
		return 0, err
	}

	var subID int64
	if err := json.Unmarshal(result, &subID); err != nil {
		return 0, fmt.Errorf("decode subscription id: %w", err)
	}
	return subID, nil
}

// UnsubscribeLogs cancels an active subscription.
func (s *WSStream) UnsubscribeLogs(ctx context.Context, subID int64) error {
	result, err := s.call(ctx, "logsUnsubscribe", []interface{}{subID})
	if err != nil {
		return err
	}

	var ok bool
	if err := json.Unmarshal(result, &ok); err != nil {
		return fmt.Errorf("decode unsubscribe result: %w", err)
	}
	if !ok {
		return fmt.Errorf("unsubscribe %d rejected", subID)
	}
	return nil
}

// Notifications returns the stream of log notifications.
func (s *WSStream) Notifications() <-chan LogNotification {
	return s.notifs
}

// Close closes the WebSocket connection.
func (s *WSStream) Close() error {
	if s.closed.Swap(true) {
		return nil // already closed
	}

	close(s.done)

	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.conn.Close()
	s.writeMu.Unlock()

	// Fail any in-flight requests
	s.pendingMu.Lock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()

	s.wg.Wait()
	return nil
}

// call issues a JSON-RPC request and waits for the matching response.
func (s *WSStream) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("stream closed")
	}

	reqID := s.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	respCh := make(chan rpcResult, 1)
	s.pendingMu.Lock()
	s.pending[reqID] = respCh
	s.pendingMu.Unlock()

	s.writeMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	err := s.conn.WriteJSON(req)
	s.writeMu.Unlock()

	if err != nil {
		s.dropPending(reqID)
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	select {
	case res, ok := <-respCh:
		if !ok {
			return nil, fmt.Errorf("stream closed")
		}
		return res.result, res.err
	case <-time.After(s.config.RequestTimeout):
		s.dropPending(reqID)
		return nil, fmt.Errorf("%s timeout after %v", method, s.config.RequestTimeout)
	case <-s.done:
		return nil, fmt.Errorf("stream closed")
	case <-ctx.Done():
		s.dropPending(reqID)
		return nil, ctx.Err()
	}
}

func (s *WSStream) dropPending(reqID uint64) {
	s.pendingMu.Lock()
	delete(s.pending, reqID)
	s.pendingMu.Unlock()
}

// readLoop reads messages until the connection fails, then closes the
// notification channel so the owner can decide to redial.
func (s *WSStream) readLoop() {
	defer s.wg.Done()
	defer close(s.notifs)

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		s.handleMessage(message)
	}
}

// handleMessage processes one incoming WebSocket message.
func (s *WSStream) handleMessage(message []byte) {
	// Notification?
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "logsNotification" {
		s.handleLogsNotification(&notif)
		return
	}

	// RPC response (subscribe/unsubscribe confirmation or error)
	var resp wsResponse
	if err := json.Unmarshal(message, &resp); err != nil || resp.ID == 0 {
		return
	}

	s.pendingMu.Lock()
	ch, ok := s.pending[resp.ID]
	if ok {
		delete(s.pending, resp.ID)
	}
	s.pendingMu.Unlock()

	if !ok {
		return
	}

	if resp.Error != nil {
		ch <- rpcResult{err: fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)}
		return
	}
	ch <- rpcResult{result: resp.Result}
}

// rpcResult carries either the result payload or the server error for
// one JSON-RPC call.
type rpcResult struct {
	result json.RawMessage
	err    error
}

// handleLogsNotification forwards a notification to the owner.
func (s *WSStream) handleLogsNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	value := notif.Params.Result.Value
	logNotif := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		logNotif.Slot = notif.Params.Result.Context.Slot
	}

	// Block until we can send - never drop events
	select {
	case s.notifs <- logNotif:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *WSStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Connection might be dead, reader will notice
			}
			s.writeMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *wsError        `json:"error"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
