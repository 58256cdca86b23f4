package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/tonetuner/tonetuner/internal/metrics"
)

var ErrNotFound = errors.New("user not found")

type Service struct {
	repo         Repository
	defaultLimit int
	botUsername  string
}

// NewService creates a Service. defaultLimit seeds daily_limit for new users.
func NewService(repo Repository, defaultLimit int, botUsername string) *Service {
	return &Service{repo: repo, defaultLimit: defaultLimit, botUsername: botUsername}
}

func (s *Service) GetOrCreate(ctx context.Context, telegramID string) (*User, error) {
	return s.repo.GetOrCreate(ctx, telegramID, s.defaultLimit)
}

func (s *Service) GetByTelegramID(ctx context.Context, telegramID string) (*User, error) {
	return s.repo.GetByTelegramID(ctx, telegramID)
}

func (s *Service) SetLanguage(ctx context.Context, telegramID, language string) error {
	if _, err := s.GetOrCreate(ctx, telegramID); err != nil {
		return err
	}
	return s.repo.SetLanguage(ctx, telegramID, language)
}

func (s *Service) Stats(ctx context.Context, now time.Time) (*metrics.UserStats, error) {
	return s.repo.Stats(ctx, now)
}

// ReferralLink is the deep link a user shares to invite friends.
func (s *Service) ReferralLink(telegramID string) string {
	return ReferralLink(s.botUsername, telegramID)
}

func ReferralLink(botUsername, telegramID string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, url.QueryEscape(telegramID))
}
