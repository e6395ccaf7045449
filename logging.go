package graph

import (
	"context"
	"log/slog"
	"time"
)

// tracer wraps an optional slog.Handler the way fox's Logger middleware
// wraps one for HTTP requests: each public operation emits a summary event
// (and InsertOrGetComplete one step event before splitting), and a no-op
// tracer (nil handler) costs nothing beyond a nil check.
type tracer struct {
	log *slog.Logger
}

func newTracer(h slog.Handler) *tracer {
	if h == nil {
		return &tracer{}
	}
	return &tracer{log: slog.New(h)}
}

func (t *tracer) enabled() bool {
	return t.log != nil
}

// step logs one intermediate event at Debug level (its only caller is
// InsertOrGetComplete, for the split candidate), mirroring the per-request
// detail fox's Logger attaches at
// Info for HTTP but we attach only when the caller opted in to a handler at
// all (there is no separate verbosity knob: callers that want quieter trace
// data should filter at the slog.Handler level, exactly as fox expects
// callers to configure their own slog.Handler level).
func (t *tracer) step(ctx context.Context, msg string, attrs ...slog.Attr) {
	if t.log == nil {
		return
	}
	t.log.LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}

// summary logs one record per public operation (Search/Insert/Read) at the
// level dictated by its verdict, mirroring fox's status-code-to-level
// mapping in logger.go's level(status int).
func (t *tracer) summary(ctx context.Context, op string, start time.Time, lvl slog.Level, attrs ...slog.Attr) {
	if t.log == nil {
		return
	}
	all := make([]slog.Attr, 0, len(attrs)+2)
	all = append(all, slog.String("op", op), slog.Duration("latency", time.Since(start)))
	all = append(all, attrs...)
	t.log.LogAttrs(ctx, lvl, "graph operation", all...)
}

// responseLevel maps a search verdict to a log level, mirroring fox's
// level(status int): a clean Complete match is routine (Info), a dead end
// worth a human's attention when debugging is Debug, exactly inverted from
// HTTP where failure is the louder case — here "the query did not fully
// resolve" is the overwhelmingly common steady state of an online reader.
func responseLevel(coverage PathCoverage, reason Reason) slog.Level {
	if coverage == CoverageComplete {
		return slog.LevelInfo
	}
	if reason == ReasonMismatch {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
