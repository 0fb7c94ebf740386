package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/comigor/lifeline/internal/history"
	"github.com/comigor/lifeline/internal/logger"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
	Stream   bool   `json:"stream"`
}

// StreamChunk is the JSON payload of one "data:" event.
type StreamChunk struct {
	Content   string  `json:"content"`
	Done      bool    `json:"done"`
	ThreadID  *string `json:"thread_id"`
	AgentType *string `json:"agent_type"`
}

// DoneSentinel terminates a successful event stream.
const DoneSentinel = "[DONE]"

// HTTPClient talks to the chat service over HTTP server-sent events.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the service at baseURL. A zero timeout
// leaves exchanges unbounded.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// StreamExchange posts message to /chat and returns the event stream.
func (c *HTTPClient) StreamExchange(ctx context.Context, message, threadID string) (Stream, error) {
	body, err := json.Marshal(ChatRequest{Message: message, ThreadID: threadID, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting chat request: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("chat service returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &sseStream{body: resp.Body, scanner: scanner, threadID: threadID}, nil
}

type sseStream struct {
	body     io.ReadCloser
	scanner  *bufio.Scanner
	threadID string
	sawFinal bool
	err      error // terminal result, repeated on later calls
}

func (s *sseStream) Recv() (Fragment, error) {
	if s.err != nil {
		return Fragment{}, s.err
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		// blank separators, comments and event/id fields carry no content
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == DoneSentinel {
			s.err = io.EOF
			return Fragment{}, s.err
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.err = fmt.Errorf("decoding stream chunk: %w", err)
			return Fragment{}, s.err
		}
		if chunk.Done {
			s.sawFinal = true
		}
		if chunk.ThreadID != nil && *chunk.ThreadID != s.threadID {
			logger.L.Debug("chat service reported a different thread id", "sent", s.threadID, "received", *chunk.ThreadID)
		}

		frag := Fragment{Content: chunk.Content}
		if chunk.AgentType != nil && *chunk.AgentType != "" {
			frag.AgentType = history.AgentType(*chunk.AgentType).OrDefault()
		}
		return frag, nil
	}
	switch err := s.scanner.Err(); {
	case err != nil:
		s.err = fmt.Errorf("reading event stream: %w", err)
	case s.sawFinal:
		s.err = io.EOF
	default:
		s.err = ErrIncompleteStream
	}
	return Fragment{}, s.err
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
