package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"PrintBridge/app/models"
	"PrintBridge/app/printing"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
)

// Event is a job lifecycle message pushed to WebSocket subscribers.
type Event struct {
	Type      string                   `json:"type"`
	Timestamp time.Time                `json:"timestamp"`
	Data      *printing.DispatchResult `json:"data,omitempty"`
}

// Server is the thin HTTP surface over the dispatcher and directory,
// with a WebSocket feed broadcasting job status.
type Server struct {
	addr       string
	dispatcher *printing.Dispatcher
	directory  *printing.Directory
	log        printing.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool

	mdnsServer *zeroconf.Server
}

// New creates the server. Routing stays trivial: every decision lives in
// the dispatcher.
func New(port int, dispatcher *printing.Dispatcher, directory *printing.Directory, log printing.Logger) *Server {
	s := &Server{
		addr:       ":" + strconv.Itoa(port),
		dispatcher: dispatcher,
		directory:  directory,
		log:        log,
		clients:    make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local network tool; accept all origins.
				return true
			},
		},
	}
	dispatcher.SetNotifier(s.BroadcastJobEvent)
	return s
}

// Start runs the HTTP server. Blocks until the listener stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/printers", s.handlePrinters)
	mux.HandleFunc("/printers/detect", s.handleDetect)
	mux.HandleFunc("/printers/discover", s.handleDiscover)
	mux.HandleFunc("/print", s.handlePrint)
	mux.HandleFunc("/print/test", s.handlePrintTest)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	if s.log != nil {
		s.log.LogInfo("Print server listening", s.addr)
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// AnnounceMDNS publishes the service on the local network so POS
// frontends can find the bridge without configuration.
func (s *Server) AnnounceMDNS(instanceName string, port int) error {
	server, err := zeroconf.Register(instanceName, "_printbridge._tcp", "local.", port,
		[]string{"version=1"}, nil)
	if err != nil {
		return fmt.Errorf("failed to announce service: %w", err)
	}
	s.mdnsServer = server
	return nil
}

// Shutdown stops the listener, the mDNS announcement and all WebSocket
// clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.mdnsServer != nil {
		s.mdnsServer.Shutdown()
	}
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.mu.Unlock()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// BroadcastJobEvent pushes a job lifecycle event to every subscriber.
// Fire-and-forget: a slow client is dropped, never blocks a print job.
func (s *Server) BroadcastJobEvent(eventType string, result *printing.DispatchResult) {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      result,
	})
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	busy, heldSince := s.dispatcher.Busy()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"busy":       busy,
		"held_since": heldSince,
		"transports": s.dispatcher.Transports(),
	})
}

func (s *Server) handlePrinters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		printers, err := s.directory.ListPrinters()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"printers": printers})
	case http.MethodPost:
		var printer models.PrinterConfig
		if err := json.NewDecoder(r.Body).Decode(&printer); err != nil {
			writeError(w, http.StatusBadRequest, "invalid printer payload: "+err.Error())
			return
		}
		if err := s.directory.Save(&printer); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, printer)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	printers, err := s.directory.DetectSystem()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"printers": printers})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	printers, err := s.directory.BrowseNetwork(r.Context(), 3*time.Second)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"printers": printers})
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order payload: "+err.Error())
		return
	}

	result := s.dispatcher.Dispatch(r.Context(), &order)
	writeJSON(w, statusFor(result), result)
}

func (s *Server) handlePrintTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result := s.dispatcher.Dispatch(r.Context(), testOrder())
	writeJSON(w, statusFor(result), result)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.log != nil {
			s.log.LogError("WebSocket upgrade failed", err)
		}
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	// Drain client messages; the feed is one-way.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// testOrder is a fixed ticket exercising alignment, emphasis and cut.
func testOrder() *models.Order {
	return &models.Order{
		Type:    models.OrderComanda,
		OrderID: "TEST-0001",
		Table:   "1",
		Waiter:  "Prueba",
		Items: []models.LineItem{
			{Description: "Prueba de impresion", Quantity: 1},
		},
		Comments: []string{"Ticket de prueba, no preparar"},
	}
}

func statusFor(result *printing.DispatchResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.ErrorKind {
	case printing.ErrKindValidation:
		return http.StatusBadRequest
	case printing.ErrKindBusy:
		return http.StatusConflict
	case printing.ErrKindEncoding:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
