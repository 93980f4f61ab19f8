package utils

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

// QuietQueryLogger wraps a GORM logger and suppresses queries matching known
// substrings. The deadline scanner polls the database every minute; without
// this filter its two queries dominate the SQL log.
type QuietQueryLogger struct {
	logger.Interface
	suppressed []string
}

// NewQuietQueryLogger wraps base, dropping trace output for any SQL that
// contains one of the given substrings
func NewQuietQueryLogger(base logger.Interface, suppressed ...string) *QuietQueryLogger {
	return &QuietQueryLogger{Interface: base, suppressed: suppressed}
}

// LogMode implements logger.Interface
func (l *QuietQueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &QuietQueryLogger{Interface: l.Interface.LogMode(level), suppressed: l.suppressed}
}

// Trace implements logger.Interface
func (l *QuietQueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	sql, _ := fc()
	for _, pattern := range l.suppressed {
		if strings.Contains(sql, pattern) {
			return
		}
	}
	l.Interface.Trace(ctx, begin, fc, err)
}
