// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"
)

// Actor is the authenticated user a request runs as.
type Actor struct {
	ID   uint
	Role models.Role
}

// ActorFor builds an Actor from a loaded user.
func ActorFor(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// IsStaff reports whether the actor belongs to the wellness team.
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleWellnessTeam
}

// today is the current date in loc, formatted like booking dates.
func today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(models.DateLayout)
}

// detached returns a context that survives the request but is bounded by
// timeout. Best-effort side effects run on it after the response is decided.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func logBestEffort(ctx context.Context, op string, err error, attrs ...any) {
	if err == nil {
		return
	}
	args := append([]any{slog.String("operation", op), slog.String("error", err.Error())}, attrs...)
	middleware.Logger.WarnContext(ctx, "best-effort step failed", args...)
}
