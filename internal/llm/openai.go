package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/lifeline/internal/history"
	"github.com/comigor/lifeline/internal/logger"
)

const defaultSystemPrompt = "You are a helpful workplace support assistant. Please respond to the user's request accurately and concisely."

// CompletionStreamer is the subset of openai.Client used by OpenAI.
type CompletionStreamer interface {
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// OpenAI serves exchanges straight from an OpenAI-compatible API. The API is
// stateless, so conversation context is kept here per thread id for the life
// of the process.
type OpenAI struct {
	client       CompletionStreamer
	model        string
	systemPrompt string

	mu      sync.Mutex
	threads map[string][]openai.ChatCompletionMessage
}

// NewOpenAI wraps client. An empty systemPrompt selects the built-in one.
func NewOpenAI(client CompletionStreamer, model, systemPrompt string) *OpenAI {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &OpenAI{
		client:       client,
		model:        model,
		systemPrompt: systemPrompt,
		threads:      make(map[string][]openai.ChatCompletionMessage),
	}
}

func (o *OpenAI) StreamExchange(ctx context.Context, message, threadID string) (Stream, error) {
	o.mu.Lock()
	prior := o.threads[threadID]
	turns := make([]openai.ChatCompletionMessage, len(prior), len(prior)+2)
	copy(turns, prior)
	o.mu.Unlock()

	turns = append(turns, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt})
	msgs = append(msgs, turns...)

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening completion stream: %w", err)
	}
	logger.L.Debug("openai stream opened", "thread_id", threadID, "turns", len(turns))

	return &openAIStream{
		stream: stream,
		agent:  RouteAgent(message),
		onDone: func(reply string) {
			o.mu.Lock()
			o.threads[threadID] = append(turns, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply})
			o.mu.Unlock()
		},
	}, nil
}

type openAIStream struct {
	stream    *openai.ChatCompletionStream
	agent     history.AgentType
	sentAgent bool
	reply     strings.Builder
	onDone    func(string)
	err       error
}

func (s *openAIStream) Recv() (Fragment, error) {
	if s.err != nil {
		return Fragment{}, s.err
	}
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.err = io.EOF
			// only completed replies become conversation context
			s.onDone(s.reply.String())
			return Fragment{}, s.err
		}
		if err != nil {
			s.err = fmt.Errorf("openai stream: %w", err)
			return Fragment{}, s.err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" && s.sentAgent {
			continue
		}

		frag := Fragment{Content: delta}
		if !s.sentAgent {
			frag.AgentType = s.agent
			s.sentAgent = true
		}
		s.reply.WriteString(delta)
		return frag, nil
	}
}

func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}
