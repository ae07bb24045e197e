package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nishant28-sh/TradeTogether/internal/domain"
	"github.com/Nishant28-sh/TradeTogether/internal/room"
	"github.com/Nishant28-sh/TradeTogether/pkg/log"
)

// State is the connection lifecycle state of the controller.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateJoined
	StateReconnecting
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Local validation errors, distinct from connection errors: they block the
// send before any network traffic happens.
var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMissingIdentity = errors.New("sender identity is missing")
	ErrNotConnected    = errors.New("not connected")
	ErrNotFailed       = errors.New("controller is not in the failed state")
	ErrClosed          = errors.New("controller is closed")
)

// RemoteError is an error event the server scoped to this session.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// Identity is the current user as supplied by the identity provider.
type Identity struct {
	ID   string
	Name string
}

// Config controls the connection and reconnection policy. The defaults
// mirror the marketplace web client: ten attempts, one second base delay
// doubling up to a five second ceiling.
type Config struct {
	URL         string // ws endpoint, e.g. ws://localhost:4000/chat/ws
	Token       string // optional bearer token, sent as a query parameter
	Identity    Identity
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	DialTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 20 * time.Second
	}
}

// Notifier receives the side effects for messages arriving in rooms other
// than the active one (sound cue, transient toast). Implementations must
// not block.
type Notifier interface {
	Notify(roomID string, msg domain.ChatMessage)
}

// Callbacks let a rendering layer observe the controller without the
// controller knowing anything about rendering. All callbacks are invoked
// from the controller's goroutines; nil callbacks are skipped.
type Callbacks struct {
	// OnMessage fires for every incoming message; active reports whether
	// it belongs to the active room (and was appended to the transcript).
	OnMessage func(msg domain.ChatMessage, active bool)
	// OnHistory fires when a room's history replay arrives after a join.
	OnHistory func(roomID string, messages []domain.ChatMessage)
	// OnTyping forwards presence hints from other room participants.
	OnTyping func(username string, isTyping bool)
	// OnState fires on every lifecycle transition.
	OnState func(state State)
	// OnError surfaces connection-level and server-scoped errors.
	OnError func(err error)
}

// Controller owns the client side of the chat connection: dialing,
// bounded-backoff reconnection, room switching, the active-room
// transcript and per-room unread counters. Room context is client-side
// state: it survives reconnection and is re-joined on every successful
// (re)connect.
type Controller struct {
	cfg       Config
	callbacks Callbacks
	notifier  Notifier

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	activeCtx  room.Context
	activeRoom string
	transcript []domain.ChatMessage
	unread     map[string]int

	retryCh   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	started   bool
}

// New builds a controller targeting the global room. Call Start to open
// the connection.
func New(cfg Config, callbacks Callbacks, notifier Notifier) (*Controller, error) {
	if cfg.URL == "" {
		return nil, errors.New("chatclient: URL is required")
	}
	cfg.applyDefaults()

	return &Controller{
		cfg:        cfg,
		callbacks:  callbacks,
		notifier:   notifier,
		state:      StateIdle,
		activeRoom: room.Global,
		unread:     make(map[string]int),
		retryCh:    make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}, nil
}

// Start launches the connection loop. It returns immediately; progress is
// reported through the OnState callback.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("chatclient: already started")
	}
	c.started = true
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// Close tears the connection down for good.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	return nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveRoom returns the canonical identifier of the active room.
func (c *Controller) ActiveRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeRoom
}

// Transcript returns a copy of the active room's visible messages.
func (c *Controller) Transcript() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Unread returns the unread count for a room.
func (c *Controller) Unread(roomID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread[roomID]
}

// UnreadCounts returns a snapshot of every room with pending unread
// messages.
func (c *Controller) UnreadCounts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.unread))
	for roomID, n := range c.unread {
		if n > 0 {
			out[roomID] = n
		}
	}
	return out
}

// SetActiveRoom switches the foreground room. The underlying connection
// stays up; the controller re-joins with the new context, clears the
// transcript pending the history replay, and zeroes the room's unread
// counter. Other rooms' counters are untouched.
func (c *Controller) SetActiveRoom(rc room.Context) error {
	roomID, err := room.Resolve(rc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.activeCtx = rc
	c.activeRoom = roomID
	c.transcript = nil
	c.unread[roomID] = 0
	conn := c.conn
	var joinErr error
	if conn != nil {
		joinErr = c.writeJSONLocked(domain.JoinEvent{
			Type:     domain.EventJoin,
			Username: c.cfg.Identity.Name,
			Context:  rc,
		})
	}
	c.mu.Unlock()

	return joinErr
}

// Send validates and transmits one user message addressed to the active
// room. Validation failures are local: no network traffic happens, and
// the returned error is distinct from connection errors.
func (c *Controller) Send(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyMessage
	}
	if c.cfg.Identity.ID == "" || c.cfg.Identity.Name == "" {
		return ErrMissingIdentity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || (c.state != StateConnected && c.state != StateJoined) {
		return ErrNotConnected
	}

	return c.writeJSONLocked(domain.SendMessageEvent{
		Type:       domain.EventSendMessage,
		SenderID:   c.cfg.Identity.ID,
		SenderName: c.cfg.Identity.Name,
		Body:       body,
		Context:    c.activeCtx,
	})
}

// SendTyping emits a presence hint for the active room. Best effort: a
// dropped hint is not an error worth surfacing.
func (c *Controller) SendTyping(isTyping bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	_ = c.writeJSONLocked(domain.TypingEvent{
		Type:       domain.EventTyping,
		SenderName: c.cfg.Identity.Name,
		IsTyping:   isTyping,
		Context:    c.activeCtx,
	})
}

// Retry restarts the dial cycle after reconnection attempts were
// exhausted. It is the manual-retry affordance behind the Failed state.
func (c *Controller) Retry() error {
	if c.State() != StateFailed {
		return ErrNotFailed
	}
	select {
	case c.retryCh <- struct{}{}:
	default:
	}
	return nil
}

func (c *Controller) run(ctx context.Context) {
	attempt := 0
	for {
		if c.isDone(ctx) {
			c.setState(StateClosed)
			return
		}

		if attempt == 0 && c.State() != StateReconnecting {
			c.setState(StateConnecting)
		}

		conn, err := c.dial(ctx)
		if err != nil {
			attempt++
			if attempt >= c.cfg.MaxAttempts {
				c.setState(StateFailed)
				c.emitError(fmt.Errorf("reconnection attempts exhausted after %d tries: %w", attempt, err))
				select {
				case <-c.retryCh:
					attempt = 0
					c.setState(StateConnecting)
					continue
				case <-ctx.Done():
					c.setState(StateClosed)
					return
				case <-c.closed:
					c.setState(StateClosed)
					return
				}
			}

			l := log.L()
			l.Debug().Int("attempt", attempt).Err(err).Msg("dial failed, backing off")
			select {
			case <-time.After(c.backoffDelay(attempt)):
			case <-ctx.Done():
				c.setState(StateClosed)
				return
			case <-c.closed:
				c.setState(StateClosed)
				return
			}
			continue
		}

		attempt = 0
		c.attach(conn)
		c.setState(StateConnected)

		// Re-issue the join for whatever room is currently selected; the
		// room context survives reconnection on this side.
		if err := c.rejoin(); err != nil {
			c.emitError(err)
			conn.Close()
			c.detach()
			continue
		}

		c.readLoop(conn)
		c.detach()

		if c.isDone(ctx) {
			c.setState(StateClosed)
			return
		}
		c.setState(StateReconnecting)
	}
}

func (c *Controller) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}

	url := c.cfg.URL
	if c.cfg.Token != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "token=" + c.cfg.Token
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	return conn, nil
}

func (c *Controller) rejoin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeJSONLocked(domain.JoinEvent{
		Type:     domain.EventJoin,
		Username: c.cfg.Identity.Name,
		Context:  c.activeCtx,
	})
}

func (c *Controller) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleEvent(data)
	}
}

func (c *Controller) handleEvent(data []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(data, &base); err != nil {
		c.emitError(fmt.Errorf("malformed event from server: %w", err))
		return
	}

	switch base.Type {
	case domain.EventChatHistory:
		var ev domain.ChatHistoryEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.emitError(fmt.Errorf("malformed chatHistory event: %w", err))
			return
		}
		c.mu.Lock()
		if ev.Room == c.activeRoom {
			c.transcript = ev.Messages
		}
		c.mu.Unlock()
		c.setState(StateJoined)
		if c.callbacks.OnHistory != nil {
			c.callbacks.OnHistory(ev.Room, ev.Messages)
		}

	case domain.EventMessage:
		var ev domain.MessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.emitError(fmt.Errorf("malformed message event: %w", err))
			return
		}
		c.dispatchMessage(ev.ChatMessage)

	case domain.EventUserTyping:
		var ev domain.UserTypingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		if c.callbacks.OnTyping != nil {
			c.callbacks.OnTyping(ev.Username, ev.IsTyping)
		}

	case domain.EventError:
		var ev domain.ErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		c.emitError(&RemoteError{Code: ev.Code, Message: ev.Message})
	}
}

// dispatchMessage routes one incoming message: active-room messages go
// onto the transcript, anything else only bumps that room's unread
// counter and triggers the notification side effect.
func (c *Controller) dispatchMessage(msg domain.ChatMessage) {
	c.mu.Lock()
	active := msg.Room == c.activeRoom
	if active {
		c.transcript = append(c.transcript, msg)
	} else {
		c.unread[msg.Room]++
	}
	c.mu.Unlock()

	if !active && c.notifier != nil {
		c.notifier.Notify(msg.Room, msg)
	}
	if c.callbacks.OnMessage != nil {
		c.callbacks.OnMessage(msg, active)
	}
}

func (c *Controller) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Controller) detach() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *Controller) writeJSONLocked(v interface{}) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *Controller) backoffDelay(attempt int) time.Duration {
	if attempt > 16 {
		return c.cfg.MaxDelay
	}
	delay := c.cfg.BaseDelay << (attempt - 1)
	if delay > c.cfg.MaxDelay || delay <= 0 {
		delay = c.cfg.MaxDelay
	}
	return delay
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	if c.state == s || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	if c.callbacks.OnState != nil {
		c.callbacks.OnState(s)
	}
}

func (c *Controller) emitError(err error) {
	if c.callbacks.OnError != nil {
		c.callbacks.OnError(err)
	}
}

func (c *Controller) isDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.closed:
		return true
	default:
		return false
	}
}
