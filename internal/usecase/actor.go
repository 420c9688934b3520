package usecase

import (
	"context"

	"clinic-queue/internal/delivery/http/middleware"
	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/service"
)

// actorFromContext names the authenticated user as the audit actor, falling back to reception
// for requests without a user.
func actorFromContext(ctx context.Context) service.AuditActor {
	actor := service.AuditActor{Name: entity.AuditActorReception}
	if role, ok := middleware.GetRoleFromContext(ctx); ok && role != "" {
		actor.Name = role
	}
	if userID, ok := middleware.GetUserIDFromContext(ctx); ok {
		actor.UserID = &userID
	}
	return actor
}
