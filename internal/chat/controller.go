// Package chat drives exchanges with the chat service and is the only writer
// of assistant messages into the session history.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/comigor/lifeline/internal/history"
	"github.com/comigor/lifeline/internal/llm"
	"github.com/comigor/lifeline/internal/logger"
)

// FallbackText replaces the reply of any failed exchange.
const FallbackText = "Sorry, I encountered an error. Please try again."

// LiveMessageID identifies the transient in-progress message in a View.
const LiveMessageID = "live"

// View is everything the presentation layer renders.
type View struct {
	History []history.Message
	Live    *history.Message // nil when no reply is streaming
	Pending bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers fn to be called after every change to the View.
// Observers run on the goroutine that made the change.
func WithObserver(fn func(View)) Option {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

// WithThreadIDGenerator overrides how new thread ids are made.
func WithThreadIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newThreadID = fn }
}

// Controller runs at most one exchange at a time against the chat service.
type Controller struct {
	store       *history.Store
	client      llm.Client
	newThreadID func() string
	observers   []func(View)

	mu      sync.Mutex
	pending bool
	live    *history.Message
}

// New creates a controller over store and client.
func New(store *history.Store, client llm.Client, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		client:      client,
		newThreadID: history.NewThreadID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// View returns the current presentation state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{History: c.store.Session().History, Pending: c.pending}
	if c.live != nil {
		live := *c.live
		v.Live = &live
	}
	return v
}

func (c *Controller) notify() {
	if len(c.observers) == 0 {
		return
	}
	v := c.View()
	for _, fn := range c.observers {
		fn(v)
	}
}

// Pending reports whether an exchange is in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Send appends text as a user message, streams the reply and commits exactly
// one assistant message. It blocks until the exchange settles and reports
// whether text was accepted: blank text, or a call while another exchange is
// pending, is ignored.
func (c *Controller) Send(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		logger.L.Debug("send ignored, exchange already pending")
		return false
	}
	c.pending = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pending = false
		c.live = nil
		c.mu.Unlock()
		c.notify()
	}()

	gen := c.appendUser(text)
	c.notify()

	// persisted before streaming so a failed exchange can be retried on the same thread
	threadID, ok, err := c.store.EnsureThreadID(gen, c.newThreadID)
	if err != nil {
		logger.L.Warn("failed to persist thread id", "thread_id", threadID, "error", err)
	}
	if !ok {
		logger.L.Info("conversation was reset before the exchange started")
		return true
	}

	c.runExchange(ctx, gen, text, threadID)
	return true
}

// appendUser appends the user message and returns the generation it landed in.
func (c *Controller) appendUser(text string) uint64 {
	msg := history.NewMessage(history.SenderUser, text, "")
	for {
		gen := c.store.Generation()
		ok, err := c.store.AppendIfCurrent(gen, msg)
		if err != nil {
			logger.L.Warn("failed to persist user message", "error", err)
		}
		if ok {
			return gen
		}
	}
}

// Reset starts a new conversation. An exchange still streaming keeps running
// but its reply is dropped.
func (c *Controller) Reset() error {
	c.mu.Lock()
	err := c.store.Reset()
	c.live = nil
	c.mu.Unlock()
	c.notify()
	return err
}

// publishLive shows the accumulated reply unless the session was reset.
func (c *Controller) publishLive(gen uint64, content string, agent history.AgentType) {
	c.mu.Lock()
	if c.store.Generation() != gen {
		c.mu.Unlock()
		return
	}
	c.live = &history.Message{
		ID:        LiveMessageID,
		Sender:    history.SenderAssistant,
		Content:   content,
		AgentType: agent.OrDefault(),
		Streaming: true,
	}
	c.mu.Unlock()
	c.notify()
}

// commit appends the final assistant message unless the session was reset.
func (c *Controller) commit(gen uint64, msg history.Message) {
	ok, err := c.store.AppendIfCurrent(gen, msg)
	if err != nil {
		logger.L.Warn("failed to persist assistant message", "error", err)
	}
	if !ok {
		logger.L.Info("discarding reply for a conversation that was reset", "message_id", msg.ID)
	}
}
