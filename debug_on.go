//go:build nativetimer_debug

package nativetimer

import (
	"context"
	"log/slog"

	"github.com/ghettovoice/nativetimer/internal/errorutil"
)

func reportInvariant(ctx context.Context, log *slog.Logger, err error, attrs ...slog.Attr) {
	err = errorutil.NewInvariantError(err)
	log.LogAttrs(ctx, slog.LevelError, "timer invariant violated", append(attrs, slog.Any("error", err))...)
	panic(err)
}
