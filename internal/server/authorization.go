package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bonos/internal/authorization"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
	obscontext "github.com/smallbiznis/bonos/internal/observability/context"
)

const (
	HeaderActorRole = "X-Actor-Role"
	HeaderActorID   = "X-Actor-Id"
	HeaderPartnerID = "X-Partner-Id"

	contextActorKey = "actor"
)

// ActorContext reads the identity asserted by the upstream gateway. Requests
// without a recognised role are rejected before reaching a handler.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := authorization.ParseRole(c.GetHeader(HeaderActorRole))
		if !ok {
			AbortWithError(c, ErrUnauthenticated)
			return
		}

		actor := lifecycledomain.Actor{
			Role:   role,
			UserID: strings.TrimSpace(c.GetHeader(HeaderActorID)),
		}
		if raw := strings.TrimSpace(c.GetHeader(HeaderPartnerID)); raw != "" {
			id, err := snowflake.ParseString(raw)
			if err != nil || id <= 0 {
				AbortWithError(c, newValidationError("partnerId", "invalid_partner_id", "invalid partner id"))
				return
			}
			actor.PartnerID = id
		}
		if actor.UserID == "" && role != authorization.RoleSystem {
			AbortWithError(c, ErrUnauthenticated)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(actor.Role), actor.UserID)
		if actor.PartnerID != 0 {
			ctx = obscontext.WithPartnerID(ctx, actor.PartnerID.String())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextActorKey, actor)
		c.Next()
	}
}

// authorizeAction gates routes the lifecycle service does not guard itself.
func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthenticated)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (lifecycledomain.Actor, bool) {
	if c == nil {
		return lifecycledomain.Actor{}, false
	}
	value, ok := c.Get(contextActorKey)
	if !ok {
		return lifecycledomain.Actor{}, false
	}
	actor, ok := value.(lifecycledomain.Actor)
	return actor, ok
}

// mustActor is used by handlers behind ActorContext.
func mustActor(c *gin.Context) lifecycledomain.Actor {
	actor, _ := actorFromContext(c)
	return actor
}

// callerKey identifies the caller for rate limiting.
func callerKey(c *gin.Context) string {
	if actor, ok := actorFromContext(c); ok && actor.UserID != "" {
		return string(actor.Role) + ":" + actor.UserID
	}
	return "ip:" + c.ClientIP()
}
