// Package gateway implements the backend's WebSocket event channel. The
// editor only consumes it for cache invalidation: an experiment.updated
// event from another session triggers the same refresh path as a local
// structural edit.
package gateway

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event types pushed by the backend.
const (
	EventExperimentUpdated = "experiment.updated"
	EventExperimentDeleted = "experiment.deleted"
)

type Event struct {
	Type         string `json:"type"`
	ExperimentID string `json:"experimentId,omitempty"`
}

// ConnectionState tracks the gateway connection lifecycle.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Client manages the WebSocket connection to the backend gateway.
type Client struct {
	mu      sync.RWMutex
	conn    *websocket.Conn
	state   ConnectionState
	url     string
	token   string
	onEvent func(Event)
	done    chan struct{}
}

func NewClient(url, token string) *Client {
	return &Client{
		url:   url,
		token: token,
		state: StateDisconnected,
		done:  make(chan struct{}),
	}
}

func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// OnEvent sets the handler for incoming events. Events are dispatched
// from the read goroutine; handlers must be safe to call off the UI loop.
func (c *Client) OnEvent(fn func(Event)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// Connect dials the gateway and starts the read loop.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	url, token := c.url, c.token
	c.mu.Unlock()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		c.setState(StateError)
		return fmt.Errorf("dial gateway: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			select {
			case <-c.done:
			default:
				c.setState(StateError)
			}
			return
		}

		c.mu.RLock()
		fn := c.onEvent
		c.mu.RUnlock()
		if fn != nil && ev.Type != "" {
			fn(ev)
		}
	}
}

// Close tears the connection down. Safe to call repeatedly.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
