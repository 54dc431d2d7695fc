package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chronosync/chronosync-api/app/entity"
	"github.com/chronosync/chronosync-api/app/repository"
)

// UserExport is the full machine-readable copy of a user's data handed
// out on an RGPD access request.
type UserExport struct {
	ExportedAt      time.Time         `json:"exported_at"`
	User            ExportedUser      `json:"user"`
	LinkedProviders []string          `json:"linked_providers"`
	AppUsage        []entity.AppUsage `json:"app_usage"`
}

type ExportedUser struct {
	ID            uint64     `json:"id"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email"`
	Image         string     `json:"image,omitempty"`
	EmailVerified *time.Time `json:"email_verified,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type RGPDService struct {
	users         userRepository
	oauthAccounts oauthAccountRepository
	usage         appUsageRepository
	now           func() time.Time
}

func NewRGPDService(db *sql.DB) *RGPDService {
	return &RGPDService{
		users:         repository.NewUserRepository(db),
		oauthAccounts: repository.NewOAuthAccountRepository(db),
		usage:         repository.NewAppUsageRepository(db),
		now:           time.Now,
	}
}

// Export collects everything stored about the user. Usage rows are the
// all-time aggregate, not raw sessions.
func (s *RGPDService) Export(ctx context.Context, userID uint64) (*UserExport, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	accounts, err := s.oauthAccounts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list oauth accounts: %w", err)
	}
	providers := make([]string, 0, len(accounts))
	for _, account := range accounts {
		providers = append(providers, account.Provider)
	}

	now := s.now().UTC()
	usage, err := s.usage.UsageForRange(ctx, userID, time.Unix(0, 0).UTC(), now, MaxPageLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage: %w", err)
	}

	exported := ExportedUser{
		ID:        user.ID,
		Name:      user.Name.String,
		Email:     user.Email,
		Image:     user.Image.String,
		CreatedAt: user.CreatedAt,
	}
	if user.EmailVerified.Valid {
		t := user.EmailVerified.Time
		exported.EmailVerified = &t
	}

	return &UserExport{
		ExportedAt:      now,
		User:            exported,
		LinkedProviders: providers,
		AppUsage:        usage,
	}, nil
}

// RequestDeletion acknowledges an erasure request. Actual removal runs
// through a manual back-office process for now.
func (s *RGPDService) RequestDeletion(ctx context.Context, userID uint64) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	return "your deletion request has been recorded and will be processed within 30 days", nil
}
