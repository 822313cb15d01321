package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/docembed/internal/errortypes"
	"github.com/xhad/docembed/internal/models"
	"github.com/xhad/docembed/pkg/pipeline"
	"golang.org/x/time/rate"
)

const (
	ServiceName = "embedding-service"

	// framing allowance on top of the file limit, for multipart bodies
	// and websocket messages
	formOverhead = 1 << 20
)

// Pipeline is the document pipeline the server exposes.
type Pipeline interface {
	RunWithProgress(ctx context.Context, doc models.Document, progress pipeline.ProgressFunc) (*models.PipelineResult, error)
	Preview(doc models.Document) (*models.Preview, error)
	EmbedText(ctx context.Context, text string) (*models.Embedding, error)
}

type Config struct {
	MaxUploadBytes int
	RateLimit      float64 // requests per second
	Burst          int
	CORSOrigins    []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Message is a websocket frame in either direction.
type Message struct {
	Type     string      `json:"type"`
	Content  string      `json:"content"`
	Filename string      `json:"filename,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type Server struct {
	config   Config
	pipeline Pipeline
	limiter  *rate.Limiter
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(config Config, p Pipeline, logger *slog.Logger) *Server {
	if config.MaxUploadBytes == 0 {
		config.MaxUploadBytes = pipeline.DefaultMaxFileSize
	}
	if config.RateLimit == 0 {
		config.RateLimit = 20
	}
	if config.Burst == 0 {
		config.Burst = 40
	}
	if len(config.CORSOrigins) == 0 {
		config.CORSOrigins = []string{"*"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		pipeline: p,
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst),
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
	return s
}

// Handler returns the routed handler with CORS, rate limiting and request
// logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /embed", s.handleEmbed)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /test-upload", s.handleTestUpload)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return s.logRequests(s.cors(s.rateLimit(mux)))
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting embedding server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down embedding server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, int64(s.config.MaxUploadBytes))).Decode(&req); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	// Client disconnects do not abort an embedding call in flight.
	ctx := context.WithoutCancel(r.Context())
	embedding, err := s.pipeline.EmbedText(ctx, req.Text)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, embedding)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	result, err := s.pipeline.RunWithProgress(ctx, doc, nil)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTestUpload(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	preview, err := s.pipeline.Preview(doc)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// readDocument reads the "file" form field. At most one byte past the
// limit is buffered so the pipeline can still report the size error.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (models.Document, bool) {
	limit := int64(s.config.MaxUploadBytes)
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeFailure(w, errortypes.PayloadTooLarge(int(maxErr.Limit), s.config.MaxUploadBytes))
			return models.Document{}, false
		}
		s.writeError(w, http.StatusUnprocessableEntity, "file is required")
		return models.Document{}, false
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return models.Document{}, false
	}

	return models.Document{Filename: header.Filename, Content: content}, true
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(int64(s.config.MaxUploadBytes) + formOverhead)

	ws := &wsConn{conn: conn, logger: s.logger}
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "error", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			ws.send(Message{Type: "error", Content: fmt.Sprintf("invalid message: %v", err)})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(context.WithoutCancel(r.Context()), ws, msg)
		}()
	}
}

func (s *Server) handleMessage(ctx context.Context, ws *wsConn, msg Message) {
	switch msg.Type {
	case "embed":
		doc := models.Document{Filename: msg.Filename, Content: []byte(msg.Content)}
		if doc.Filename == "" {
			doc.Filename = "message.txt"
		}

		result, err := s.pipeline.RunWithProgress(ctx, doc, func(done, total int) {
			ws.send(Message{
				Type:    "progress",
				Content: fmt.Sprintf("chunk %d/%d", done, total),
				Data:    map[string]int{"done": done, "total": total},
			})
		})
		if err != nil {
			ws.send(Message{Type: "error", Content: err.Error()})
			return
		}
		ws.send(Message{Type: "result", Content: result.Filename, Data: result})
	default:
		ws.send(Message{Type: "error", Content: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *slog.Logger
}

func (c *wsConn) send(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn("error sending websocket message", "type", msg.Type, "error", err)
	}
}

// StatusFor maps a pipeline failure to its HTTP status.
func StatusFor(err error) int {
	kind, ok := errortypes.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case kind == errortypes.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case errortypes.IsClientError(kind):
		return http.StatusBadRequest
	case kind == errortypes.KindTransport, kind == errortypes.KindProvider, kind == errortypes.KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.config.CORSOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if headers := r.Header.Get("Access-Control-Request-Headers"); headers != "" {
				w.Header().Set("Access-Control-Allow-Headers", headers)
			}
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(started))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
