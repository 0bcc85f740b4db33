package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/zzfab/respkit/lua"
	"github.com/zzfab/respkit/protocol"
)

// Server provides RESP server functionality
type Server struct {
	cfg     *config
	decoder *protocol.Decoder
	lua     *lua.Engine

	// Connection management
	listener net.Listener
	clients  sync.Map // map[net.Conn]*Client

	// Control
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time

	// Metrics
	connCount    int64
	commandCount int64
	errorCount   int64
	mu           sync.RWMutex
}

// Client represents a connected client
type Client struct {
	conn   net.Conn
	stream *protocol.Stream
	server *Server

	// Control
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates a server configured by opts. The server does not listen until
// Start is called.
func New(opts ...Option) (*Server, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("server option: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:     cfg,
		decoder: cfg.streamDecoder(),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.lua = lua.NewEngine(s.scriptCall)

	return s, nil
}

// Start starts listening and serving connections
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.startTime = time.Now()
	s.mu.Unlock()

	s.cfg.logger.Info("server listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Stop stops the server and closes every client connection
func (s *Server) Stop() error {
	s.cancel()

	s.mu.RLock()
	listener := s.listener
	s.mu.RUnlock()
	if listener != nil {
		listener.Close()
	}

	// Close all client connections
	s.clients.Range(func(key, value interface{}) bool {
		if client, ok := value.(*Client); ok {
			client.Close()
		}
		return true
	})

	s.wg.Wait()
	s.cfg.logger.Info("server stopped")
	return nil
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.addr
}

// Stats returns server statistics
func (s *Server) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"connected_clients": s.clientCount(),
		"total_commands":    s.commandCount,
		"total_errors":      s.errorCount,
		"total_connections": s.connCount,
	}
}

func (s *Server) clientCount() int {
	count := 0
	s.clients.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// acceptConnections accepts new client connections
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return // Server is shutting down
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.cfg.logger.Error("accept failed", "error", err)
			continue
		}

		s.handleNewClient(conn)
	}
}

// handleNewClient registers conn and starts serving it
func (s *Server) handleNewClient(conn net.Conn) {
	s.mu.Lock()
	s.connCount++
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	client := &Client{
		conn:   conn,
		stream: protocol.NewStream(conn, s.decoder),
		server: s,
		ctx:    ctx,
		cancel: cancel,
	}

	s.clients.Store(conn, client)
	s.cfg.logger.Debug("client connected", "remote", conn.RemoteAddr().String())

	s.wg.Add(1)
	go client.handle()
}

// Close closes the client connection
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
		c.server.clients.Delete(c.conn)
	})
}

// handle serves requests until the client leaves or the server stops
func (c *Client) handle() {
	defer c.server.wg.Done()
	defer c.Close()

	log := c.server.cfg.logger
	remote := c.conn.RemoteAddr().String()

	for {
		if c.ctx.Err() != nil {
			return
		}

		if d := c.server.cfg.readTimeout; d > 0 {
			c.conn.SetReadDeadline(time.Now().Add(d))
		}

		value, ok, err := c.stream.ReadValue()
		if err != nil {
			if c.ctx.Err() != nil {
				return // Server shutting down
			}
			if errors.Is(err, protocol.ErrTransportFailure) {
				log.Debug("client read failed", "remote", remote, "error", err)
				return
			}
			log.Info("closing client after protocol error", "remote", remote, "error", err)
			c.writeError(fmt.Sprintf("ERR Protocol error: %v", err))
			return
		}
		if !ok {
			log.Debug("client disconnected", "remote", remote)
			return
		}

		cmd, err := protocol.ParseCommand(value)
		if err != nil {
			c.writeError(fmt.Sprintf("ERR Protocol error: %v", err))
			continue
		}

		if !c.executeCommand(cmd) {
			return
		}
	}
}

// executeCommand runs cmd and writes its reply. It returns false when the
// connection should be closed.
func (c *Client) executeCommand(cmd *protocol.Command) bool {
	c.server.mu.Lock()
	c.server.commandCount++
	c.server.mu.Unlock()

	if cmd.Name == "QUIT" {
		c.writeValue(protocol.SimpleString("OK"))
		return false
	}

	reply, err := c.server.call(c.ctx, cmd)
	if err != nil {
		return c.writeError(replyMessage(err))
	}
	return c.writeValue(reply)
}

// writeValue writes v. A value that cannot be encoded is answered with an
// error reply instead.
func (c *Client) writeValue(v protocol.Value) bool {
	c.setWriteDeadline()

	err := c.stream.WriteValue(v)
	if err == nil {
		return true
	}
	if errors.Is(err, protocol.ErrTransportFailure) {
		c.server.cfg.logger.Debug("client write failed", "remote", c.conn.RemoteAddr().String(), "error", err)
		return false
	}
	return c.writeError(fmt.Sprintf("ERR %v", err))
}

func (c *Client) writeError(msg string) bool {
	c.server.mu.Lock()
	c.server.errorCount++
	c.server.mu.Unlock()

	c.setWriteDeadline()
	if err := c.stream.WriteError(msg); err != nil {
		c.server.cfg.logger.Debug("client write failed", "remote", c.conn.RemoteAddr().String(), "error", err)
		return false
	}
	return true
}

func (c *Client) setWriteDeadline() {
	if d := c.server.cfg.writeTimeout; d > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(d))
	}
}
