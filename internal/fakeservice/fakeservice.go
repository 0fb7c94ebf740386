// Package fakeservice is a local stand-in for the hosted chat service. It
// speaks the same wire protocol: POST /chat with a JSON body, answered either
// with a JSON document or a word-by-word server-sent event stream.
package fakeservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/comigor/lifeline/internal/history"
	"github.com/comigor/lifeline/internal/llm"
	"github.com/comigor/lifeline/internal/logger"
)

// Responder produces the full reply for one message.
type Responder func(message, threadID string) (string, history.AgentType, error)

// ChatResponse is the body returned when the request did not ask to stream.
type ChatResponse struct {
	Response  string `json:"response"`
	ThreadID  string `json:"thread_id"`
	AgentType string `json:"agent_type,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Option configures the router.
type Option func(*handler)

// WithResponder replaces the canned replies.
func WithResponder(r Responder) Option {
	return func(h *handler) { h.respond = r }
}

// WithChunkDelay pauses between streamed words.
func WithChunkDelay(d time.Duration) Option {
	return func(h *handler) { h.delay = d }
}

type handler struct {
	respond Responder
	delay   time.Duration
}

// NewRouter returns the chat service routes.
func NewRouter(opts ...Option) http.Handler {
	h := &handler{respond: CannedReply}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Post("/chat", h.chat)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	req := llm.ChatRequest{Stream: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "message is required"})
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = history.NewThreadID()
	}

	reply, agent, err := h.respond(req.Message, threadID)
	if err != nil {
		logger.L.Error("responder failed", "thread_id", threadID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: fmt.Sprintf("Error processing chat request: %v", err)})
		return
	}
	logger.L.Info("chat request", "thread_id", threadID, "agent_type", agent, "stream", req.Stream)

	if !req.Stream {
		writeJSON(w, http.StatusOK, ChatResponse{Response: reply, ThreadID: threadID, AgentType: string(agent)})
		return
	}
	h.stream(w, r, reply, threadID, agent)
}

// stream sends one event per word; the thread id and agent type ride on the last one.
func (h *handler) stream(w http.ResponseWriter, r *http.Request, reply, threadID string, agent history.AgentType) {
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	words := strings.Fields(reply)
	for i, word := range words {
		last := i == len(words)-1
		chunk := llm.StreamChunk{Content: word, Done: last}
		if !last {
			chunk.Content += " "
		} else {
			tid, at := threadID, string(agent)
			chunk.ThreadID, chunk.AgentType = &tid, &at
		}
		if err := writeEvent(w, chunk); err != nil {
			logger.L.Warn("stream write failed", "thread_id", threadID, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		if h.delay > 0 && !last {
			select {
			case <-time.After(h.delay):
			case <-r.Context().Done():
				return
			}
		}
	}
	fmt.Fprintf(w, "data: %s\n\n", llm.DoneSentinel)
	if flusher != nil {
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, chunk llm.StreamChunk) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Warn("response encode failed", "error", err)
	}
}

var cannedReplies = map[history.AgentType]string{
	history.AgentDadJoke:   "Why did the chicken join the band? Because it had the drumsticks!",
	history.AgentPolicy:    "Here is the short version: - Privacy: we only keep what we need to help you - Retention: chat transcripts are deleted after 30 days",
	history.AgentTechnical: "Let's get that fixed. - Check: confirm your API key is set - Retry: API errors usually clear after a short backoff",
	history.AgentBilling:   "Our plans are simple: - Starter: free for small teams - Business: billed monthly per seat",
	history.AgentSupport:   "Happy to help with that. Tell me a little more about what is going on at the office.",
}

// ErrEmptyMessage is returned by CannedReply for blank input.
var ErrEmptyMessage = errors.New("empty message")

// CannedReply routes message by keyword and answers with a fixed reply.
func CannedReply(message, _ string) (string, history.AgentType, error) {
	if strings.TrimSpace(message) == "" {
		return "", "", ErrEmptyMessage
	}
	agent := llm.RouteAgent(message)
	return cannedReplies[agent], agent, nil
}
