package entity

import (
	"database/sql"
	"time"
)

// Application is a tracked desktop/mobile application, unique per package
// name.
type Application struct {
	ID          uint64
	AppName     string
	PackageName string
	CreatedAt   time.Time
}

// UsageSession is one continuous usage interval reported by a tracker
// client. EndTime is NULL while the session is still running.
type UsageSession struct {
	ID        uint64
	UserID    uint64
	AppID     uint64
	StartTime time.Time
	EndTime   sql.NullTime
	CreatedAt time.Time
}

// AppUsage is one aggregated row of the usage report: total seconds and
// session count per application inside a time range.
type AppUsage struct {
	AppID         uint64 `json:"app_id"`
	AppName       string `json:"app_name"`
	PackageName   string `json:"package_name"`
	TotalDuration int64  `json:"total_duration"`
	SessionCount  int64  `json:"session_count"`
}
