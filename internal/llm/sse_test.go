package llm_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/lifeline/internal/fakeservice"
	"github.com/comigor/lifeline/internal/history"
	"github.com/comigor/lifeline/internal/llm"
)

// drain reads a stream to its terminal error.
func drain(t *testing.T, s llm.Stream) ([]llm.Fragment, error) {
	t.Helper()
	var out []llm.Fragment
	for {
		f, err := s.Recv()
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}

func TestHTTPClient_FakeService(t *testing.T) {
	var gotThread string
	srv := httptest.NewServer(fakeservice.NewRouter(fakeservice.WithResponder(
		func(message, threadID string) (string, history.AgentType, error) {
			gotThread = threadID
			return "Why did the chicken...", history.AgentDadJoke, nil
		})))
	defer srv.Close()

	c := llm.NewHTTPClient(srv.URL+"/", 0)
	stream, err := c.StreamExchange(context.Background(), "Tell me a joke", "thread_abc")
	require.NoError(t, err)
	defer stream.Close()

	frags, err := drain(t, stream)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, "thread_abc", gotThread)

	var text strings.Builder
	for _, f := range frags {
		text.WriteString(f.Content)
	}
	require.Equal(t, "Why did the chicken...", text.String())
	require.Len(t, frags, 4)
	require.Empty(t, frags[0].AgentType)
	require.Equal(t, history.AgentDadJoke, frags[len(frags)-1].AgentType)

	// terminal result is sticky
	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func sseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_StreamEndings(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		frags   int
		wantErr error
	}{
		{
			name:    "done sentinel",
			body:    "data: {\"content\":\"hi\"}\n\ndata: [DONE]\n\n",
			frags:   1,
			wantErr: io.EOF,
		},
		{
			name:    "done flag without sentinel",
			body:    "data: {\"content\":\"hi\",\"done\":true}\n\n",
			frags:   1,
			wantErr: io.EOF,
		},
		{
			name:    "no fragments",
			body:    "data: [DONE]\n\n",
			frags:   0,
			wantErr: io.EOF,
		},
		{
			name:    "connection dropped",
			body:    "data: {\"content\":\"partial \"}\n\ndata: {\"content\":\"text\"}\n\n",
			frags:   2,
			wantErr: llm.ErrIncompleteStream,
		},
		{
			name:  "comments and event fields are skipped",
			body:  ": keep-alive\nevent: message\ndata: {\"content\":\"a\"}\n\ndata:[DONE]\n\n",
			frags: 1, wantErr: io.EOF,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := sseServer(t, tc.body)
			stream, err := llm.NewHTTPClient(srv.URL, 0).StreamExchange(context.Background(), "hi", "thread_1")
			require.NoError(t, err)
			defer stream.Close()

			frags, err := drain(t, stream)
			require.ErrorIs(t, err, tc.wantErr)
			require.Len(t, frags, tc.frags)
		})
	}
}

func TestHTTPClient_BadChunk(t *testing.T) {
	srv := sseServer(t, "data: {\"content\":\"ok\"}\n\ndata: {nope\n\n")
	stream, err := llm.NewHTTPClient(srv.URL, 0).StreamExchange(context.Background(), "hi", "thread_1")
	require.NoError(t, err)
	defer stream.Close()

	frags, err := drain(t, stream)
	require.Len(t, frags, 1)
	require.Error(t, err)
	require.False(t, errors.Is(err, io.EOF))
}

func TestHTTPClient_UnknownAgentType(t *testing.T) {
	srv := sseServer(t, "data: {\"content\":\"a\",\"agent_type\":\"weather\"}\n\ndata: {\"content\":\"b\",\"agent_type\":null}\n\ndata: [DONE]\n\n")
	stream, err := llm.NewHTTPClient(srv.URL, 0).StreamExchange(context.Background(), "hi", "thread_1")
	require.NoError(t, err)
	defer stream.Close()

	frags, err := drain(t, stream)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, history.AgentSupport, frags[0].AgentType)
	require.Empty(t, frags[1].AgentType)
}

func TestHTTPClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(fakeservice.NewRouter(fakeservice.WithResponder(
		func(string, string) (string, history.AgentType, error) {
			return "", "", errors.New("orchestrator down")
		})))
	defer srv.Close()

	_, err := llm.NewHTTPClient(srv.URL, 0).StreamExchange(context.Background(), "hi", "thread_1")
	require.ErrorContains(t, err, "500")
	require.ErrorContains(t, err, "orchestrator down")
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := llm.NewHTTPClient(url, 0).StreamExchange(context.Background(), "hi", "thread_1")
	require.Error(t, err)
}
