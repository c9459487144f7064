package llm

import "context"

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Options control a single completion request.
type Options struct {
	Temperature float32
	MaxTokens   int
}

type Option func(*Options)

func WithTemperature(t float32) Option {
	return func(o *Options) { o.Temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

func applyOptions(opts []Option) Options {
	o := Options{Temperature: 0.7}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

type Client interface {
	Generate(ctx context.Context, messages []Message, opts ...Option) (Response, error)
}
