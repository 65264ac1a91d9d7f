package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrEmptyCompletion is returned when the model streamed nothing but whitespace.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// CallOptions are the sampling settings for one completion.
type CallOptions struct {
	Temperature float32
	MaxTokens   int
}

// Completer sends a prompt and blocks until the full completion text is available.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CallOptions) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, opts CallOptions) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	return f(ctx, prompt, opts)
}

// ChatCompleter streams a single user message through an eino chat model and joins the chunks.
type ChatCompleter struct {
	Model model.BaseChatModel
}

func NewChatCompleter(m model.BaseChatModel) *ChatCompleter {
	return &ChatCompleter{Model: m}
}

func (c *ChatCompleter) Complete(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	messages := []*schema.Message{schema.UserMessage(prompt)}

	var callOpts []model.Option
	if opts.Temperature > 0 {
		callOpts = append(callOpts, model.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, model.WithMaxTokens(opts.MaxTokens))
	}

	stream, err := c.Model.Stream(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("stream: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("recv: %w", err)
		}
		if chunk != nil {
			sb.WriteString(chunk.Content)
		}
	}

	out := sb.String()
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}
