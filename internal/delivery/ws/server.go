package ws

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/smartcity/transitnet/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server pushes simulation events to websocket dashboard clients. It runs
// on its own listener: the REST API rides fasthttp and cannot share one.
type Server struct {
	events       <-chan domain.Event
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	httpServer   *http.Server
}

// NewServer creates a websocket server fed by the event subscription.
func NewServer(events <-chan domain.Event) *Server {
	return &Server{
		events:  events,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Start serves the /ws endpoint and broadcasts events until the listener
// closes.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWs)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	go s.broadcastEvents()

	log.Printf("[ws] event feed starting on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener and drops all clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] err upgrading connection: %v", err)
		return
	}

	s.clientsMutex.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMutex.Unlock()

	log.Printf("[ws] client connected. Total clients: %d", total)

	go s.handleClientMessages(conn)
}

func (s *Server) handleClientMessages(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.clientsMutex.Lock()
		delete(s.clients, conn)
		remaining := len(s.clients)
		s.clientsMutex.Unlock()
		log.Printf("[ws] client disconnected. Remaining clients: %d", remaining)
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] error: %v", err)
			}
			break
		}
	}
}

// broadcastEvents fans every event out to the connected clients, dropping
// clients whose writes fail.
func (s *Server) broadcastEvents() {
	for e := range s.events {
		s.clientsMutex.Lock()
		for conn := range s.clients {
			if err := conn.WriteJSON(e); err != nil {
				log.Printf("[ws] write failed, dropping client: %v", err)
				conn.Close()
				delete(s.clients, conn)
			}
		}
		s.clientsMutex.Unlock()
	}
}
