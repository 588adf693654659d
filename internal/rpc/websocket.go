package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNoNodes is returned when the client has no backend to dial
var ErrNoNodes = errors.New("no backend nodes configured")

// WebSocketStream implements channel.Channel for WebSocket communication.
// Each JSON-RPC message travels as one text frame.
type WebSocketStream struct {
	conn  *websocket.Conn
	write sync.Mutex
}

// NewWebSocketStream wraps an open connection
func NewWebSocketStream(conn *websocket.Conn) *WebSocketStream {
	return &WebSocketStream{conn: conn}
}

// Send implements the channel.Sender interface
func (ws *WebSocketStream) Send(data []byte) error {
	ws.write.Lock()
	defer ws.write.Unlock()
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

// Recv implements the channel.Receiver interface
func (ws *WebSocketStream) Recv() ([]byte, error) {
	_, data, err := ws.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close implements the io.Closer interface
func (ws *WebSocketStream) Close() error {
	return ws.conn.Close()
}

// ReconnectionManager handles automatic reconnection with failover
type ReconnectionManager struct {
	nodes        []string
	currentNode  int
	retryBackoff *ExponentialBackoff
}

// NewReconnectionManager creates a new reconnection manager
func NewReconnectionManager(nodes []string) *ReconnectionManager {
	return &ReconnectionManager{
		nodes:        nodes,
		retryBackoff: NewExponentialBackoff(),
	}
}

// ConnectWithFailover dials the nodes in turn, starting with the last one
// that worked
func (rm *ReconnectionManager) ConnectWithFailover(ctx context.Context) (*websocket.Conn, error) {
	if len(rm.nodes) == 0 {
		return nil, ErrNoNodes
	}

	var lastErr error
	for i := 0; i < len(rm.nodes); i++ {
		nodeURL := rm.nodes[(rm.currentNode+i)%len(rm.nodes)]

		u, err := url.Parse(nodeURL)
		if err != nil {
			lastErr = fmt.Errorf("parse %q: %w", nodeURL, err)
			continue
		}

		dialer := websocket.Dialer{
			HandshakeTimeout: rm.retryBackoff.GetTimeout(),
		}

		conn, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			lastErr = fmt.Errorf("dial %s: %w", u, err)
			continue
		}

		// Success - update current node and reset backoff
		rm.currentNode = (rm.currentNode + i) % len(rm.nodes)
		rm.retryBackoff.Reset()
		return conn, nil
	}

	// All nodes failed, increment backoff
	rm.retryBackoff.Increment()
	return nil, lastErr
}

// CurrentNode returns the node used for the next attempt
func (rm *ReconnectionManager) CurrentNode() string {
	if len(rm.nodes) == 0 {
		return ""
	}
	return rm.nodes[rm.currentNode]
}

// CircuitBreaker implements circuit breaker pattern for fault tolerance
type CircuitBreaker struct {
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	state            CircuitState
	lastFailureTime  time.Time
	timeout          time.Duration
	now              func() time.Time
}

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: 5,
		successThreshold: 3,
		timeout:          30 * time.Second,
		state:            CircuitClosed,
		now:              time.Now,
	}
}

// IsOpen returns true if the circuit breaker is open
func (cb *CircuitBreaker) IsOpen() bool {
	if cb.state == CircuitOpen {
		// Check if timeout has passed
		if cb.now().Sub(cb.lastFailureTime) > cb.timeout {
			cb.state = CircuitHalfOpen
			cb.failureCount = 0
			cb.successCount = 0
			return false
		}
		return true
	}
	return false
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	return cb.state
}

// RecordSuccess records a successful operation
func (cb *CircuitBreaker) RecordSuccess() {
	cb.successCount++

	switch cb.state {
	case CircuitHalfOpen:
		if cb.successCount >= cb.successThreshold {
			cb.state = CircuitClosed
			cb.failureCount = 0
		}
	case CircuitClosed:
		cb.failureCount = 0
	}
}

// RecordFailure records a failed operation
func (cb *CircuitBreaker) RecordFailure() {
	cb.failureCount++
	cb.lastFailureTime = cb.now()

	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		cb.state = CircuitOpen
	}
}

// ExponentialBackoff implements exponential backoff for retries
type ExponentialBackoff struct {
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	retryCount int
}

// NewExponentialBackoff creates a backoff starting at one second and capped
// at thirty
func NewExponentialBackoff() *ExponentialBackoff {
	return NewBackoff(time.Second, 30*time.Second)
}

// NewBackoff creates a backoff that doubles from base up to maxDelay
func NewBackoff(base, maxDelay time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		baseDelay:  base,
		maxDelay:   max(base, maxDelay),
		multiplier: 2.0,
	}
}

// Retries returns the number of increments since the last reset
func (eb *ExponentialBackoff) Retries() int {
	return eb.retryCount
}

// GetDelay returns the current delay
func (eb *ExponentialBackoff) GetDelay() time.Duration {
	delay := float64(eb.baseDelay)
	for i := 0; i < eb.retryCount; i++ {
		delay *= eb.multiplier
		if delay > float64(eb.maxDelay) {
			return eb.maxDelay
		}
	}
	return time.Duration(delay)
}

// GetTimeout returns timeout for connection attempts
func (eb *ExponentialBackoff) GetTimeout() time.Duration {
	return eb.GetDelay()
}

// Increment increases the retry count
func (eb *ExponentialBackoff) Increment() {
	eb.retryCount++
}

// Reset resets the backoff state
func (eb *ExponentialBackoff) Reset() {
	eb.retryCount = 0
}
