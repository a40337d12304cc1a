// Package mockserver is a small TxSentinel compatible server for local
// development and tests. Wallet clients connect on /wallet/, warnings and
// balances can be pushed over HTTP or from Go.
package mockserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientMessage is a frame received from a wallet client
type ClientMessage struct {
	Type        string `json:"type"`
	Address     string `json:"address,omitempty"`
	TxHash      string `json:"txHash,omitempty"`
	WarningHash string `json:"warningHash,omitempty"`
	Raw         []byte `json:"-"`
}

// Warning is what the server pushes as a TxWarning frame
type Warning struct {
	WarningHash string `json:"warningHash"`
	TxHash      string `json:"txHash"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

type client struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	wallet  string
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Server is an http.Handler
type Server struct {
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *log.Logger

	// InitialBalance is pushed right after a WalletTrack; negative disables it
	InitialBalance float64

	mu       sync.Mutex
	clients  map[*client]struct{}
	received []ClientMessage
	changed  chan struct{}
}

// New creates a server. logger may be nil.
func New(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		upgrader:       websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:         logger,
		clients:        make(map[*client]struct{}),
		changed:        make(chan struct{}),
		InitialBalance: -1,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/wallet/", s.handleWallet)
	r.Post("/warnings", s.handlePostWarning)
	r.Post("/balance", s.handlePostBalance)
	r.Get("/clients", s.handleClients)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}
	c := &client{ws: ws}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("client connected", "remote", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		_ = ws.Close()
		s.logger.Info("client disconnected", "remote", r.RemoteAddr)
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("bad client frame", "err", err)
			continue
		}
		msg.Raw = data
		s.record(c, msg)

		if msg.Type == "WalletTrack" && s.InitialBalance >= 0 {
			_ = c.write(mustJSON(map[string]any{"type": "BalanceUpdate", "balance": s.InitialBalance}))
		}
	}
}

func (s *Server) record(c *client, msg ClientMessage) {
	s.mu.Lock()
	if msg.Type == "WalletTrack" {
		c.wallet = msg.Address
	}
	s.received = append(s.received, msg)
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
	s.logger.Debug("received", "type", msg.Type)
}

func (s *Server) handlePostWarning(w http.ResponseWriter, r *http.Request) {
	var warn Warning
	if err := json.NewDecoder(r.Body).Decode(&warn); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	warn = s.SendWarning(warn)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(warn)
}

func (s *Server) handlePostBalance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.SendBalance(body.Balance)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	wallets := make([]string, 0, len(s.clients))
	for c := range s.clients {
		wallets = append(wallets, c.wallet)
	}
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"wallets": wallets})
}

// SendWarning pushes a TxWarning to every client. Missing hashes are filled
// with random ones.
func (s *Server) SendWarning(warn Warning) Warning {
	if warn.WarningHash == "" {
		warn.WarningHash = uuid.NewString()
	}
	if warn.TxHash == "" {
		warn.TxHash = "0x" + uuid.NewString()
	}
	s.Broadcast(struct {
		Type string `json:"type"`
		Warning
	}{"TxWarning", warn})
	return warn
}

// SendBalance pushes a BalanceUpdate to every client
func (s *Server) SendBalance(balance float64) {
	s.Broadcast(map[string]any{"type": "BalanceUpdate", "balance": balance})
}

// Broadcast sends v as JSON to every client
func (s *Server) Broadcast(v any) {
	s.BroadcastRaw(mustJSON(v))
}

// BroadcastRaw sends data verbatim to every client
func (s *Server) BroadcastRaw(data []byte) {
	for _, c := range s.snapshot() {
		if err := c.write(data); err != nil {
			s.logger.Warn("write failed", "err", err)
		}
	}
}

// CloseAll ends every session with a close frame carrying reason
func (s *Server) CloseAll(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	for _, c := range s.snapshot() {
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.ws.Close()
	}
}

// DropAll closes every socket without a close frame
func (s *Server) DropAll() {
	for _, c := range s.snapshot() {
		_ = c.ws.Close()
	}
}

// Clients is the number of connected clients
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Received returns every client frame so far
func (s *Server) Received() []ClientMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ClientMessage(nil), s.received...)
}

// Wait blocks until a received frame satisfies match
func (s *Server) Wait(ctx context.Context, match func(ClientMessage) bool) (ClientMessage, error) {
	for {
		s.mu.Lock()
		for _, m := range s.received {
			if match(m) {
				s.mu.Unlock()
				return m, nil
			}
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ClientMessage{}, ctx.Err()
		}
	}
}

// WaitClients blocks until n clients are connected
func (s *Server) WaitClients(ctx context.Context, n int) error {
	t := time.NewTicker(5 * time.Millisecond)
	defer t.Stop()
	for s.Clients() != n {
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Server) snapshot() []*client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
