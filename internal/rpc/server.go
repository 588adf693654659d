package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/gorilla/websocket"

	"vlist-tui/pkg/types"
)

// MaxFetchItems bounds the range a single items.fetch may ask for
const MaxFetchItems = 1000

// ErrInvalidRange is returned for a fetch range outside the item set
var ErrInvalidRange = errors.New("invalid item range")

// Server serves a types.ItemSource over JSON-RPC, one jrpc2 server per websocket
// connection.
type Server struct {
	source   types.ItemSource
	upgrader websocket.Upgrader
}

// NewServer creates a server for source
func NewServer(source types.ItemSource) *Server {
	return &Server{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Methods returns the method table
func (s *Server) Methods() handler.Map {
	return handler.Map{
		types.MethodItemsCount: handler.New(s.count),
		types.MethodItemsFetch: handler.New(s.fetch),
	}
}

func (s *Server) count(ctx context.Context) (types.CountResult, error) {
	n, err := s.source.Count(ctx)
	if err != nil {
		return types.CountResult{}, err
	}
	return types.CountResult{Count: n}, nil
}

func (s *Server) fetch(ctx context.Context, params types.FetchItemsParams) (types.FetchItemsResult, error) {
	if params.Start < 0 || params.End < params.Start {
		return types.FetchItemsResult{}, fmt.Errorf("[%d, %d): %w", params.Start, params.End, ErrInvalidRange)
	}
	if params.End-params.Start > MaxFetchItems {
		params.End = params.Start + MaxFetchItems
	}

	n, err := s.source.Count(ctx)
	if err != nil {
		return types.FetchItemsResult{}, err
	}
	end := min(params.End, n)
	if params.Start >= end {
		return types.FetchItemsResult{Items: []types.ListItem{}}, nil
	}

	items, err := s.source.FetchItems(ctx, params.Start, end)
	if err != nil {
		return types.FetchItemsResult{}, err
	}
	return types.FetchItemsResult{Items: items}, nil
}

// Serve runs the methods on ch until the peer disconnects
func (s *Server) Serve(ch channel.Channel) error {
	return jrpc2.NewServer(s.Methods(), nil).Start(ch).Wait()
}

// ServeHTTP upgrades the request to a websocket and serves it
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("rpc: upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	log.Printf("rpc: client %s connected", r.RemoteAddr)
	if err := s.Serve(NewWebSocketStream(conn)); err != nil && !isClosed(err) {
		log.Printf("rpc: client %s: %v", r.RemoteAddr, err)
	}
	log.Printf("rpc: client %s disconnected", r.RemoteAddr)
}

// isClosed reports whether err is a normal end of the connection
func isClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, io.EOF)
}

// ListenAndServe serves the item source at ws://addr/rpc until ctx is done
func ListenAndServe(ctx context.Context, addr string, source types.ItemSource) error {
	mux := http.NewServeMux()
	mux.Handle("/rpc", NewServer(source))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("rpc: serving items on ws://%s/rpc", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("item server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
