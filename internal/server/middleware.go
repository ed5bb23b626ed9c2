package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/actorctx"
	obscontext "github.com/AlexVasiliu-dev/rentalmanager/internal/observability/context"
)

const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"
)

// ActorMiddleware trusts the identity headers forwarded by the gateway.
// Requests without them proceed unauthenticated; handlers that require an
// actor reject those downstream.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := c.GetHeader(headerActorID)
		rawRole := c.GetHeader(headerActorRole)
		if rawID == "" || rawRole == "" {
			c.Next()
			return
		}

		actorID, err := snowflake.ParseString(rawID)
		if err != nil {
			c.Next()
			return
		}
		role, ok := actorctx.ParseRole(rawRole)
		if !ok {
			c.Next()
			return
		}

		ctx := actorctx.WithActor(c.Request.Context(), actorctx.Actor{
			ID:   actorID,
			Role: role,
		})
		ctx = obscontext.WithActor(ctx, string(role), actorID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
