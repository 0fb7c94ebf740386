package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/lifeline/internal/config"
	"github.com/comigor/lifeline/internal/history"
)

// fakeOpenAI streams the given deltas and records every request it receives.
func fakeOpenAI(t *testing.T, deltas []string, requests *[]openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":""}}]}`+"\n\n")
		for _, d := range deltas {
			payload, _ := json.Marshal(d)
			fmt.Fprintf(w, `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":%s}}]}`+"\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAI(t *testing.T, srv *httptest.Server) *OpenAI {
	t.Helper()
	c, err := NewClient(config.ChatServiceConfig{
		Provider: config.ProviderOpenAI,
		BaseURL:  srv.URL + "/v1",
		APIKey:   "test",
		Model:    "gpt-test",
	})
	require.NoError(t, err)
	return c.(*OpenAI)
}

func collect(t *testing.T, s Stream) ([]Fragment, error) {
	t.Helper()
	var out []Fragment
	for {
		f, err := s.Recv()
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}

func TestOpenAI_Streams(t *testing.T) {
	var reqs []openai.ChatCompletionRequest
	o := newTestOpenAI(t, fakeOpenAI(t, []string{"Why", " did", " the chicken..."}, &reqs))

	stream, err := o.StreamExchange(context.Background(), "Tell me a joke", "thread_1")
	require.NoError(t, err)
	defer stream.Close()

	frags, err := collect(t, stream)
	require.ErrorIs(t, err, io.EOF)

	var text strings.Builder
	for _, f := range frags {
		text.WriteString(f.Content)
	}
	require.Equal(t, "Why did the chicken...", text.String())
	require.Equal(t, history.AgentDadJoke, frags[0].AgentType)
	for _, f := range frags[1:] {
		require.Empty(t, f.AgentType)
	}

	require.Len(t, reqs, 1)
	require.Equal(t, "gpt-test", reqs[0].Model)
	require.True(t, reqs[0].Stream)
	require.Equal(t, openai.ChatMessageRoleSystem, reqs[0].Messages[0].Role)
	require.Equal(t, "Tell me a joke", reqs[0].Messages[1].Content)
}

func TestOpenAI_KeepsThreadContext(t *testing.T) {
	var reqs []openai.ChatCompletionRequest
	o := newTestOpenAI(t, fakeOpenAI(t, []string{"ok"}, &reqs))

	for _, msg := range []string{"first", "second"} {
		stream, err := o.StreamExchange(context.Background(), msg, "thread_1")
		require.NoError(t, err)
		_, err = collect(t, stream)
		require.ErrorIs(t, err, io.EOF)
		stream.Close()
	}
	stream, err := o.StreamExchange(context.Background(), "other", "thread_2")
	require.NoError(t, err)
	_, _ = collect(t, stream)
	stream.Close()

	require.Len(t, reqs, 3)
	// system, user, assistant, user
	require.Len(t, reqs[1].Messages, 4)
	require.Equal(t, "first", reqs[1].Messages[1].Content)
	require.Equal(t, openai.ChatMessageRoleAssistant, reqs[1].Messages[2].Role)
	require.Equal(t, "ok", reqs[1].Messages[2].Content)
	// a different thread starts clean
	require.Len(t, reqs[2].Messages, 2)
}

func TestOpenAI_OpenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, err := newTestOpenAI(t, srv).StreamExchange(context.Background(), "hi", "thread_1")
	require.Error(t, err)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(config.ChatServiceConfig{Provider: "smoke-signals"})
	require.Error(t, err)
}

func TestNewClient_HTTP(t *testing.T) {
	c, err := NewClient(config.ChatServiceConfig{Provider: config.ProviderHTTP, BaseURL: "http://example.invalid"})
	require.NoError(t, err)
	require.IsType(t, &HTTPClient{}, c)
}

func TestRouteAgent(t *testing.T) {
	cases := map[string]history.AgentType{
		"Please tell me a joke":        history.AgentDadJoke,
		"Tell me about privacy policy": history.AgentPolicy,
		"How do I fix API errors?":     history.AgentTechnical,
		"What are your pricing plans?": history.AgentBilling,
		"My stapler is missing":        history.AgentSupport,
	}
	for in, want := range cases {
		require.Equal(t, want, RouteAgent(in), in)
	}
}
