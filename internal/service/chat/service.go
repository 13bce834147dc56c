package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/survey-chat/backend/internal/service/ai"
)

// Intent is the outcome of keyword classification.
type Intent string

const (
	IntentGreeting Intent = "greeting"
	IntentName     Intent = "name"
	IntentOpen     Intent = "open"
)

// Options holds every fixed reply, keyword set and sampling setting of the processor.
type Options struct {
	Greetings     []string
	NameQuestions []string

	GreetingReply string
	NameReply     string
	DefaultReply  string
	ErrorReply    string

	// PromptFormat receives the original message through a single %s verb.
	PromptFormat    string
	AssistantMarker string
	HumanMarker     string
	Params          ai.Params

	// Timeout bounds the remote call; zero means no bound beyond the request context.
	Timeout time.Duration
}

// DefaultOptions returns the production reply set.
func DefaultOptions() Options {
	return Options{
		Greetings:     []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"},
		NameQuestions: []string{"what is your name", "what should i call you", "who are you"},

		GreetingReply: "Good morning! How can I help you today?",
		NameReply:     "I'm an AI assistant. You can call me Bot.",
		DefaultReply:  "I apologize, I'm having trouble understanding. Could you rephrase that?",
		ErrorReply:    "I'm sorry, I'm having technical difficulties. Please try again.",

		PromptFormat:    "Human: %s\nAssistant: Let me help you with that. ",
		AssistantMarker: "Assistant:",
		HumanMarker:     "Human:",
		Params: ai.Params{
			MaxNewTokens:       50,
			Temperature:        0.7,
			DoSample:           true,
			NumReturnSequences: 1,
			TopK:               50,
			TopP:               0.9,
		},
	}
}

// Service turns one inbound chat message into one reply. It keeps no state between calls.
type Service struct {
	generator ai.Generator
	opts      Options
}

// NewService creates a processor backed by generator.
func NewService(generator ai.Generator, opts Options) *Service {
	opts.Greetings = append([]string(nil), opts.Greetings...)
	opts.NameQuestions = append([]string(nil), opts.NameQuestions...)
	return &Service{generator: generator, opts: opts}
}

// Classify matches the normalized message against the keyword sets, greetings first.
func (s *Service) Classify(message string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if containsAny(normalized, s.opts.Greetings) {
		return IntentGreeting
	}
	if containsAny(normalized, s.opts.NameQuestions) {
		return IntentName
	}
	return IntentOpen
}

// ProcessMessage never fails: every error ends in one of the fallback replies.
func (s *Service) ProcessMessage(ctx context.Context, message string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[chat] processing panic: %v", r)
			reply = s.opts.ErrorReply
		}
	}()

	switch s.Classify(message) {
	case IntentGreeting:
		return s.opts.GreetingReply
	case IntentName:
		return s.opts.NameReply
	}

	raw, err := s.generate(ctx, message)
	if err != nil {
		log.Printf("[chat] processing error: %v", err)
		return s.opts.ErrorReply
	}

	cleaned, ok := CleanReply(raw, s.opts.AssistantMarker, s.opts.HumanMarker)
	if !ok || !ValidReply(cleaned) {
		return s.opts.DefaultReply
	}
	return cleaned
}

func (s *Service) generate(ctx context.Context, message string) (string, error) {
	if s.generator == nil {
		return "", fmt.Errorf("no text generator configured")
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(s.opts.PromptFormat, message)
	raw, err := s.generator.Generate(ctx, prompt, s.opts.Params)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	log.Printf("[chat] raw generation (%d bytes): %q", len(raw), truncate(raw, 200))
	return raw, nil
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
