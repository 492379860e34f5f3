// Package chat produces short empathetic replies to free-form user
// messages. The language model is the primary path; a canned reply keeps
// the endpoint available when the model is down.
package chat

import (
	"context"
	"log/slog"
	"strings"
)

// Completer is the language-model collaborator.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const systemPrompt = "너는 감정을 다정하게 들어주는 소비 코치야. 사용자의 말에 공감하는 한두 문장으로 짧게 답해줘."

const fallbackReply = "지금은 답변을 준비하지 못했어요. 잠시 후 다시 이야기해 주세요."

// Service answers chat messages.
type Service struct {
	llm    Completer
	logger *slog.Logger
}

func NewService(llm Completer, logger *slog.Logger) *Service {
	return &Service{llm: llm, logger: logger}
}

// Reply never fails: any model problem degrades to the canned reply so
// the endpoint stays conversational.
func (s *Service) Reply(ctx context.Context, message string) string {
	if s.llm == nil {
		return fallbackReply
	}
	answer, err := s.llm.Complete(ctx, systemPrompt, message)
	if err != nil {
		s.logger.Warn("chat completion failed, using canned reply", slog.Any("error", err))
		return fallbackReply
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fallbackReply
	}
	return answer
}
