package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chronosync/chronosync-api/app/entity"
	"github.com/chronosync/chronosync-api/app/repository"
)

var ErrInvalidSessionRange = errors.New("session end before start")

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type appUsageRepository interface {
	UsageForRange(ctx context.Context, userID uint64, start, end time.Time, limit, offset int) ([]entity.AppUsage, error)
	CountAppsForRange(ctx context.Context, userID uint64, start, end time.Time) (int64, error)
	FindApplicationByPackage(ctx context.Context, packageName string) (*entity.Application, error)
	CreateApplication(ctx context.Context, app *entity.Application) error
	CreateSession(ctx context.Context, session *entity.UsageSession) error
}

// UsagePage is one page of aggregated per-app usage, most used first.
type UsagePage struct {
	Data  []entity.AppUsage `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type AppUsageService struct {
	db    *sql.DB
	usage appUsageRepository
	now   func() time.Time
}

func NewAppUsageService(db *sql.DB) *AppUsageService {
	return &AppUsageService{
		db:    db,
		usage: repository.NewAppUsageRepository(db),
		now:   time.Now,
	}
}

func (s *AppUsageService) Daily(ctx context.Context, userID uint64, page, limit int) (*UsagePage, error) {
	start := startOfDay(s.now().UTC())
	return s.pageForRange(ctx, userID, start, start.AddDate(0, 0, 1), page, limit)
}

func (s *AppUsageService) Weekly(ctx context.Context, userID uint64, page, limit int) (*UsagePage, error) {
	start := startOfWeek(s.now().UTC())
	return s.pageForRange(ctx, userID, start, start.AddDate(0, 0, 7), page, limit)
}

func (s *AppUsageService) Monthly(ctx context.Context, userID uint64, page, limit int) (*UsagePage, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.pageForRange(ctx, userID, start, start.AddDate(0, 1, 0), page, limit)
}

func (s *AppUsageService) Yearly(ctx context.Context, userID uint64, page, limit int) (*UsagePage, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return s.pageForRange(ctx, userID, start, start.AddDate(1, 0, 0), page, limit)
}

func (s *AppUsageService) Range(ctx context.Context, userID uint64, start, end time.Time, page, limit int) (*UsagePage, error) {
	if !end.After(start) {
		return nil, ErrInvalidSessionRange
	}
	return s.pageForRange(ctx, userID, start, end, page, limit)
}

func (s *AppUsageService) pageForRange(ctx context.Context, userID uint64, start, end time.Time, page, limit int) (*UsagePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}

	rows, err := s.usage.UsageForRange(ctx, userID, start, end, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage: %w", err)
	}
	total, err := s.usage.CountAppsForRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("count apps: %w", err)
	}

	return &UsagePage{Data: rows, Total: total, Page: page, Limit: limit}, nil
}

// RecordSession stores one usage session, creating the application row on
// first sight of its package name. Both writes share a transaction.
func (s *AppUsageService) RecordSession(ctx context.Context, userID uint64, appName, packageName string, start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return ErrInvalidSessionRange
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	usage := repository.NewAppUsageRepository(tx)
	app, err := usage.FindApplicationByPackage(ctx, packageName)
	if err != nil {
		return fmt.Errorf("find application: %w", err)
	}
	if app == nil {
		app = &entity.Application{AppName: appName, PackageName: packageName}
		if err := usage.CreateApplication(ctx, app); err != nil {
			if !errors.Is(err, repository.ErrDuplicateEntry) {
				return fmt.Errorf("create application: %w", err)
			}
			// Lost a race on the package name unique index.
			app, err = usage.FindApplicationByPackage(ctx, packageName)
			if err != nil || app == nil {
				return fmt.Errorf("find application after race: %w", err)
			}
		}
	}

	session := &entity.UsageSession{
		UserID:    userID,
		AppID:     app.ID,
		StartTime: start,
	}
	if end != nil {
		session.EndTime = sql.NullTime{Time: *end, Valid: true}
	}
	if err := usage.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return tx.Commit()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the most recent Sunday midnight.
func startOfWeek(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}
