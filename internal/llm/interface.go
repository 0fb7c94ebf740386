package llm

import (
	"context"
	"errors"

	"github.com/comigor/lifeline/internal/history"
)

// ErrIncompleteStream is returned when the connection ends before the
// service signalled completion.
var ErrIncompleteStream = errors.New("llm: stream ended before completion")

// Fragment is one incremental piece of an assistant reply. An empty AgentType
// means the service did not classify this fragment.
type Fragment struct {
	Content   string
	AgentType history.AgentType
}

// Stream yields fragments in arrival order. Recv returns io.EOF once the
// exchange completed and any other error when it failed.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}

// Client is the chat service as seen by the chat controller; it is easy to mock in tests.
type Client interface {
	StreamExchange(ctx context.Context, message, threadID string) (Stream, error)
}
