package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"

	"vlist-tui/pkg/types"
)

var (
	// ErrCircuitOpen is returned while the circuit breaker rejects calls
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrNotConnected is returned by a channel client whose channel closed
	ErrNotConnected = errors.New("not connected")
)

// Client is the JSON-RPC item source backed by a remote item server. It
// connects lazily and reconnects on the next call after the transport
// fails.
type Client struct {
	reconnector    *ReconnectionManager
	circuitBreaker *CircuitBreaker
	dial           func(ctx context.Context) (channel.Channel, error)

	mutex sync.Mutex
	rpc   *jrpc2.Client
}

var _ types.ItemSource = (*Client)(nil)

// NewClient creates a client for the given websocket URLs
func NewClient(nodes []string) *Client {
	c := &Client{
		reconnector:    NewReconnectionManager(nodes),
		circuitBreaker: NewCircuitBreaker(),
	}
	c.dial = c.dialWebSocket
	return c
}

// NewChannelClient creates a client over an already open channel. It does
// not reconnect.
func NewChannelClient(ch channel.Channel) *Client {
	return &Client{
		circuitBreaker: NewCircuitBreaker(),
		rpc:            jrpc2.NewClient(ch, nil),
	}
}

func (c *Client) dialWebSocket(ctx context.Context) (channel.Channel, error) {
	conn, err := c.reconnector.ConnectWithFailover(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("rpc: connected to %s", c.reconnector.CurrentNode())
	return NewWebSocketStream(conn), nil
}

// Connect establishes the connection if there is none
func (c *Client) Connect(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, err := c.connectLocked(ctx)
	return err
}

func (c *Client) connectLocked(ctx context.Context) (*jrpc2.Client, error) {
	if c.rpc != nil {
		return c.rpc, nil
	}
	if c.circuitBreaker.IsOpen() {
		return nil, ErrCircuitOpen
	}
	if c.dial == nil {
		return nil, ErrNotConnected
	}

	ch, err := c.dial(ctx)
	if err != nil {
		c.circuitBreaker.RecordFailure()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	c.rpc = jrpc2.NewClient(ch, nil)
	return c.rpc, nil
}

// Connected reports whether a connection is open
func (c *Client) Connected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.rpc != nil
}

// Close closes the connection
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.rpc == nil {
		return nil
	}
	err := c.rpc.Close()
	c.rpc = nil
	return err
}

// Call makes a synchronous RPC call and decodes its result
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	c.mutex.Lock()
	cli, err := c.connectLocked(ctx)
	c.mutex.Unlock()
	if err != nil {
		return err
	}

	err = cli.CallResult(ctx, method, params, result)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	var rpcErr *jrpc2.Error
	switch {
	case err == nil, errors.As(err, &rpcErr):
		// the server answered, so the transport is healthy
		c.circuitBreaker.RecordSuccess()
	case ctx.Err() != nil:
	default:
		c.circuitBreaker.RecordFailure()
		if c.rpc == cli {
			log.Printf("rpc: %s failed, dropping connection: %v", method, err)
			cli.Close()
			c.rpc = nil
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Count implements the item source interface
func (c *Client) Count(ctx context.Context) (int, error) {
	var result types.CountResult
	if err := c.Call(ctx, types.MethodItemsCount, nil, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// FetchItems implements the item source interface for [start, end)
func (c *Client) FetchItems(ctx context.Context, start, end int) ([]types.ListItem, error) {
	var result types.FetchItemsResult
	params := types.FetchItemsParams{Start: start, End: end}
	if err := c.Call(ctx, types.MethodItemsFetch, params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// CircuitState returns the state of the circuit breaker
func (c *Client) CircuitState() CircuitState {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.circuitBreaker.State()
}
