package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormZapLogger implements gorm's logger.Interface on top of zap so SQL
// logs come out as structured fields instead of plain text. Raw SQL is
// never logged; only an op/table summary, to avoid leaking parameters.
type gormZapLogger struct {
	l     *zap.Logger
	level logger.LogLevel
}

func newGormLogger(l *zap.Logger, lvl logger.LogLevel) *gormZapLogger {
	return &gormZapLogger{l: l, level: lvl}
}

func (g *gormZapLogger) LogMode(l logger.LogLevel) logger.Interface { g.level = l; return g }

func (g *gormZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.level < logger.Info {
		return
	}
	g.l.Info("gorm", zap.String("msg", msg), zap.Any("args", data))
}

func (g *gormZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.level < logger.Warn {
		return
	}
	g.l.Warn("gorm", zap.String("msg", msg), zap.Any("args", data))
}

func (g *gormZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.level < logger.Error {
		return
	}
	g.l.Error("gorm", zap.String("msg", msg), zap.Any("args", data))
}

// Trace logs each SQL statement with duration and rows affected.
func (g *gormZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	sql, rows := fc()
	op, table := summarizeSQL(sql)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("table", table),
		zap.Int64("rows", rows),
		zap.Float64("durationMs", float64(time.Since(begin))/1e6),
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if g.level >= logger.Info {
				g.l.Debug("gorm_sql", append(fields, zap.Bool("notFound", true))...)
			}
			return
		}
		if g.level >= logger.Error {
			g.l.Error("gorm_sql", append(fields, zap.Error(err))...)
		}
		return
	}
	if g.level >= logger.Info {
		g.l.Debug("gorm_sql", fields...)
	}
}

// summarizeSQL reduces a statement to "op, table" without parameters,
// e.g. "SELECT", "job_runs".
func summarizeSQL(sql string) (op string, table string) {
	q := strings.ToUpper(strings.Join(strings.Fields(sql), " "))
	parts := strings.Fields(q)
	if len(parts) == 0 {
		return "", ""
	}
	op = parts[0]
	s := q
	switch {
	case strings.HasPrefix(s, "UPDATE "):
		s = s[len("UPDATE "):]
	case strings.HasPrefix(s, "INSERT INTO "):
		s = s[len("INSERT INTO "):]
	case strings.HasPrefix(s, "DELETE FROM "):
		s = s[len("DELETE FROM "):]
	default:
		if idx := strings.Index(s, " FROM "); idx >= 0 {
			s = s[idx+6:]
		}
	}
	if ws := strings.Fields(s); len(ws) > 0 {
		table = strings.Trim(ws[0], "`\"")
	}
	return op, strings.ToLower(table)
}
