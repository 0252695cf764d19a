// Package webchat provides an embeddable AI web-chat backend: an HTTP server
// that serves a chat widget, relays user messages to a pluggable Responder
// (an AI workflow webhook or an Ollama instance), and renders the
// assistant's markdown replies into safe HTML.
//
// Environment variables:
//   - WEBCHAT_ADDR: HTTP listen address (default ":8753")
//   - WEBCHAT_WEBHOOK_URL: AI webhook endpoint for the default responder
//   - WEBCHAT_DATABASE: SQLite transcript database path (empty disables persistence)
//   - WEBCHAT_DEBUG: "true" enables debug logging
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the configuration for the chat server.
// All fields can be populated from environment variables using GetEnvironmentConfig().
type Config struct {
	Addr       string        // HTTP listen address (e.g. ":8753")
	WebhookURL string        // AI webhook endpoint, used when Responder is nil
	Database   string        // SQLite transcript database path; empty disables persistence
	Timeout    time.Duration // Per-reply deadline (default: 2 minutes)
	Debug      bool          // Enable debug logging

	// Responder overrides the webhook responder built from WebhookURL.
	Responder Responder
}

// GetEnvironmentConfig creates a Config from environment variables.
func GetEnvironmentConfig() Config {
	return Config{
		Addr:       os.Getenv("WEBCHAT_ADDR"),
		WebhookURL: os.Getenv("WEBCHAT_WEBHOOK_URL"),
		Database:   os.Getenv("WEBCHAT_DATABASE"),
		Debug:      os.Getenv("WEBCHAT_DEBUG") == "true",
	}
}

// Validate checks that required fields are set.
func (c Config) Validate() error {
	if c.WebhookURL == "" && c.Responder == nil {
		return fmt.Errorf("webchat: a webhook URL or a custom responder is required")
	}
	return nil
}

// Server is the chat backend. It serves the widget page, accepts messages,
// asks the Responder for replies and returns them rendered as HTML.
type Server struct {
	config    Config
	responder Responder
	store     *Store
	srv       *http.Server
	log       zerolog.Logger
}

// NewServer creates a new chat server with the given configuration.
// Call Run() to start it.
func NewServer(config Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Addr == "" {
		config.Addr = ":8753"
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}

	responder := config.Responder
	if responder == nil {
		responder = NewWebhookResponder(config.WebhookURL)
	}

	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.TimeFormat = time.Stamp
	})).With().Timestamp().Logger()
	if !config.Debug {
		log = log.Level(zerolog.InfoLevel)
	}

	return &Server{
		config:    config,
		responder: responder,
		log:       log,
	}, nil
}

// routes builds the HTTP handler for the chat endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/chat/send", s.handleSend)
	mux.HandleFunc("/chat/history", s.handleHistory)
	return mux
}

// Run starts the server: opens the transcript store if configured and serves
// HTTP. This blocks until the context is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	if s.config.Database != "" {
		store, err := OpenStore(s.config.Database)
		if err != nil {
			return err
		}
		s.store = store
	}

	s.srv = &http.Server{Addr: s.config.Addr, Handler: s.routes()}

	s.log.Info().Str("addr", s.config.Addr).Msg("Chat server is running")

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("webchat: server failed: %w", err)
	case <-ctx.Done():
		return nil
	}
}

// Stop gracefully stops the server and closes the transcript store.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		if err := s.srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("webchat: shutdown failed: %w", err)
		}
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

type sendRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type sendResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	HTML      string `json:"html"`
}

// replyFallback is shown when the responder fails; degraded but never blank.
const replyFallback = "Sorry, I could not reach the assistant. Please try again."

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = NewSessionID()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.Timeout)
	defer cancel()

	s.appendMessage(ctx, Message{SessionID: req.SessionID, Role: "user", Body: req.Message})

	reply, err := s.responder.Reply(ctx, req.SessionID, req.Message)
	if err != nil {
		s.log.Error().Err(err).
			Str("session_id", req.SessionID).
			Msg("Responder failed")
		reply = replyFallback
	}

	html := Render(reply)
	s.appendMessage(ctx, Message{SessionID: req.SessionID, Role: "assistant", Body: reply, HTML: html})

	s.log.Debug().
		Str("session_id", req.SessionID).
		Int("message_len", len(req.Message)).
		Int("reply_len", len(reply)).
		Msg("Message handled")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sendResponse{
		SessionID: req.SessionID,
		Reply:     reply,
		HTML:      html,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	msgs := []Message{}
	if s.store != nil {
		var err error
		msgs, err = s.store.History(r.Context(), sessionID, 0)
		if err != nil {
			s.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load history")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if msgs == nil {
			msgs = []Message{}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, widgetPage)
}

// appendMessage stores a message when persistence is enabled. Storage errors
// are logged, not surfaced: losing history must not break the conversation.
func (s *Server) appendMessage(ctx context.Context, msg Message) {
	if s.store == nil {
		return
	}
	if err := s.store.Append(ctx, msg); err != nil {
		s.log.Error().Err(err).
			Str("session_id", msg.SessionID).
			Str("role", msg.Role).
			Msg("Failed to store message")
	}
}
