package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/chronosync/chronosync-api/app/entity"
)

type AppUsageRepository struct {
	db dbtx
}

func NewAppUsageRepository(db dbtx) *AppUsageRepository {
	return &AppUsageRepository{db: db}
}

// UsageForRange aggregates per-application usage inside [start, end].
// Sessions still running (end_time IS NULL) count up to the current
// server time.
func (r *AppUsageRepository) UsageForRange(ctx context.Context, userID uint64, start, end time.Time, limit, offset int) ([]entity.AppUsage, error) {
	query := `
		SELECT a.id, a.app_name, a.package_name,
		       CAST(SUM(TIMESTAMPDIFF(SECOND, s.start_time, COALESCE(s.end_time, UTC_TIMESTAMP()))) AS SIGNED) AS total_duration,
		       COUNT(s.id) AS session_count
		FROM app_usage_sessions s
		JOIN applications a ON a.id = s.app_id
		WHERE s.user_id = ? AND s.start_time >= ? AND (s.end_time IS NULL OR s.end_time <= ?)
		GROUP BY a.id, a.app_name, a.package_name
		ORDER BY total_duration DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID, start, end, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := make([]entity.AppUsage, 0)
	for rows.Next() {
		var row entity.AppUsage
		if err := rows.Scan(
			&row.AppID,
			&row.AppName,
			&row.PackageName,
			&row.TotalDuration,
			&row.SessionCount,
		); err != nil {
			return nil, err
		}
		usage = append(usage, row)
	}
	return usage, rows.Err()
}

// CountAppsForRange returns the number of distinct applications used in
// the range, the total the paginated report is sliced from.
func (r *AppUsageRepository) CountAppsForRange(ctx context.Context, userID uint64, start, end time.Time) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT s.app_id)
		FROM app_usage_sessions s
		WHERE s.user_id = ? AND s.start_time >= ? AND (s.end_time IS NULL OR s.end_time <= ?)
	`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, userID, start, end).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *AppUsageRepository) FindApplicationByPackage(ctx context.Context, packageName string) (*entity.Application, error) {
	query := `
		SELECT id, app_name, package_name, created_at
		FROM applications WHERE package_name = ?
	`
	app := &entity.Application{}
	err := r.db.QueryRowContext(ctx, query, packageName).Scan(
		&app.ID,
		&app.AppName,
		&app.PackageName,
		&app.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (r *AppUsageRepository) CreateApplication(ctx context.Context, app *entity.Application) error {
	query := `
		INSERT INTO applications (app_name, package_name, created_at)
		VALUES (?, ?, ?)
	`
	app.CreatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query, app.AppName, app.PackageName, app.CreatedAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateEntry
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	app.ID = uint64(id)
	return nil
}

func (r *AppUsageRepository) CreateSession(ctx context.Context, session *entity.UsageSession) error {
	query := `
		INSERT INTO app_usage_sessions (user_id, app_id, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	session.CreatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		session.UserID,
		session.AppID,
		session.StartTime,
		session.EndTime,
		session.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	session.ID = uint64(id)
	return nil
}
