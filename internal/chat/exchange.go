package chat

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/qmuntal/stateless"

	"github.com/comigor/lifeline/internal/history"
	"github.com/comigor/lifeline/internal/llm"
	"github.com/comigor/lifeline/internal/logger"
	"github.com/comigor/lifeline/internal/normalize"
)

// Exchange FSM states. Completed and Failed are terminal and permit nothing,
// so a second commit is impossible.
type exchangeState string

const (
	stateOpening   exchangeState = "Opening"
	stateReceiving exchangeState = "Receiving"
	stateCompleted exchangeState = "Completed"
	stateFailed    exchangeState = "Failed"
)

// Exchange FSM triggers.
type exchangeTrigger string

const (
	triggerFragment  exchangeTrigger = "Fragment"
	triggerCompleted exchangeTrigger = "Completed"
	triggerFailed    exchangeTrigger = "Failed"
)

// exchange is the per-send state carried between FSM actions.
type exchange struct {
	gen      uint64
	threadID string
	content  strings.Builder
	agent    history.AgentType
	received int
}

// newExchangeFSM wires the lifecycle of one exchange:
//
//	Opening -> Receiving (re-entered per fragment) -> Completed | Failed
//
// Opening may also go straight to Completed (empty reply) or Failed.
func (c *Controller) newExchangeFSM(ex *exchange) *stateless.StateMachine {
	fsm := stateless.NewStateMachine(stateOpening)

	fsm.Configure(stateOpening).
		Permit(triggerFragment, stateReceiving).
		Permit(triggerCompleted, stateCompleted).
		Permit(triggerFailed, stateFailed)

	// Receiving: append the fragment and republish the live view.
	fsm.Configure(stateReceiving).
		OnEntry(func(_ context.Context, args ...any) error {
			frag, ok := fragmentArg(args)
			if !ok {
				return errors.New("fragment trigger without a fragment")
			}
			ex.received++
			ex.content.WriteString(frag.Content)
			if frag.AgentType != "" {
				ex.agent = frag.AgentType
			}
			c.publishLive(ex.gen, ex.content.String(), ex.agent)
			return nil
		}).
		PermitReentry(triggerFragment).
		Permit(triggerCompleted, stateCompleted).
		Permit(triggerFailed, stateFailed)

	// Completed: commit the whole reply.
	fsm.Configure(stateCompleted).
		OnEntry(func(_ context.Context, _ ...any) error {
			msg := history.NewMessage(history.SenderAssistant, normalize.Normalize(ex.content.String()), ex.agent.OrDefault())
			logger.L.Debug("exchange completed", "thread_id", ex.threadID, "fragments", ex.received, "agent_type", msg.AgentType)
			c.commit(ex.gen, msg)
			return nil
		})

	// Failed: partial content is discarded in favor of the fallback text.
	fsm.Configure(stateFailed).
		OnEntry(func(_ context.Context, args ...any) error {
			var reason error
			if len(args) > 0 {
				reason, _ = args[0].(error)
			}
			logger.L.Error("exchange failed", "thread_id", ex.threadID, "fragments", ex.received, "error", reason)
			c.commit(ex.gen, history.NewMessage(history.SenderAssistant, FallbackText, history.AgentSupport))
			return nil
		})

	return fsm
}

func fragmentArg(args []any) (llm.Fragment, bool) {
	if len(args) == 0 {
		return llm.Fragment{}, false
	}
	frag, ok := args[0].(llm.Fragment)
	return frag, ok
}

// runExchange opens the stream and feeds it through the FSM until a terminal
// state is reached.
func (c *Controller) runExchange(ctx context.Context, gen uint64, text, threadID string) {
	ex := &exchange{gen: gen, threadID: threadID}
	fsm := c.newExchangeFSM(ex)

	fire := func(trigger exchangeTrigger, args ...any) {
		if err := fsm.FireCtx(ctx, trigger, args...); err != nil {
			logger.L.Warn("exchange FSM fire error", "trigger", trigger, "error", err)
		}
	}

	stream, err := c.client.StreamExchange(ctx, text, threadID)
	if err != nil {
		fire(triggerFailed, err)
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logger.L.Debug("closing stream", "error", err)
		}
	}()

	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			fire(triggerCompleted)
			return
		}
		if err != nil {
			fire(triggerFailed, err)
			return
		}
		fire(triggerFragment, frag)
	}
}
