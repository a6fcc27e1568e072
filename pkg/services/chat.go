package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/assistant"
)

// Chat throttle defaults: one message every two seconds with a burst of five.
const (
	DefaultChatRate  = rate.Limit(0.5)
	DefaultChatBurst = 5

	maxChatMessageLength = 2000
	chatLimiterIdle      = 10 * time.Minute
	chatLimiterSweepSize = 1024
)

// ChatConfig configures ChatService.
type ChatConfig struct {
	Rate  rate.Limit
	Burst int
}

type sessionLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ChatService forwards visitor messages to the assistant. The chat session
// id is always passed in by the caller. Throttling is per visitor, so a
// conversation reset does not refill the allowance; idle limiters are swept.
type ChatService struct {
	assistant assistant.Assistant
	cfg       ChatConfig
	logger    *zap.Logger

	mu       sync.Mutex
	limiters map[string]*sessionLimiter
	now      func() time.Time
}

// NewChatService creates a ChatService.
func NewChatService(a assistant.Assistant, cfg ChatConfig, logger *zap.Logger) *ChatService {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultChatRate
	}
	if cfg.Burst < 1 {
		cfg.Burst = DefaultChatBurst
	}
	return &ChatService{
		assistant: a,
		cfg:       cfg,
		logger:    logger.Named("chat"),
		limiters:  make(map[string]*sessionLimiter),
		now:       time.Now,
	}
}

// Send trims message and asks the assistant within sessionID's conversation.
// visitorID keys the throttle; an empty visitorID falls back to sessionID.
func (s *ChatService) Send(ctx context.Context, visitorID, sessionID, message string) (*assistant.Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message", "Message is required")
	}
	if len([]rune(message)) > maxChatMessageLength {
		return nil, apperrors.NewValidationError("message", "Message is too long")
	}
	if sessionID == "" {
		return nil, apperrors.NewValidationError("session_id", "Session is required")
	}
	if visitorID == "" {
		visitorID = sessionID
	}
	if !s.allow(visitorID) {
		s.logger.Debug("Chat message throttled",
			zap.String("visitor_id", visitorID),
			zap.String("session_id", sessionID))
		return nil, apperrors.ErrRateLimited
	}

	reply, err := s.assistant.Ask(ctx, sessionID, message)
	if err != nil {
		s.logger.Warn("Assistant request failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, err
	}
	return reply, nil
}

func (s *ChatService) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sl, ok := s.limiters[key]
	if !ok {
		if len(s.limiters) >= chatLimiterSweepSize {
			s.sweepLocked(now)
		}
		sl = &sessionLimiter{limiter: rate.NewLimiter(s.cfg.Rate, s.cfg.Burst)}
		s.limiters[key] = sl
	}
	sl.lastSeen = now
	return sl.limiter.AllowN(now, 1)
}

func (s *ChatService) sweepLocked(now time.Time) {
	for id, sl := range s.limiters {
		if now.Sub(sl.lastSeen) > chatLimiterIdle {
			delete(s.limiters, id)
		}
	}
}
