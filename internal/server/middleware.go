package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openagora/agora/internal/adminctx"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	authscope "github.com/openagora/agora/internal/auth/scope"
	obscontext "github.com/openagora/agora/internal/observability/context"
	"github.com/openagora/agora/internal/observability/logger"
	"go.uber.org/zap"
)

const apiKeyPrefix = "ak_live_"

// AuthRequired authenticates the request as either an admin session or a
// machine API key and stores the resulting actor on the request context.
// Every admin route sits behind it; capability checks come separately.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rawKey, ok := bearerAPIKey(c); ok {
			s.authenticateAPIKey(c, rawKey)
			return
		}
		s.authenticateSession(c)
	}
}

func (s *Server) authenticateSession(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	session, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), session.UserID)
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	actor := adminctx.Actor{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		AuthKind: adminctx.AuthSession,
	}

	ctx := adminctx.WithActor(c.Request.Context(), actor)
	ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeAdmin), user.ID.String())
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func (s *Server) authenticateAPIKey(c *gin.Context, rawKey string) {
	key, err := s.apiKeySvc.Authenticate(c.Request.Context(), rawKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor := adminctx.Actor{
		ID:       key.ID,
		AuthKind: adminctx.AuthAPIKey,
		Scopes:   append([]string(nil), key.Scopes...),
	}

	ctx := adminctx.WithActor(c.Request.Context(), actor)
	ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeAPIKey), key.KeyID)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func bearerAPIKey(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	if !strings.HasPrefix(parts[1], apiKeyPrefix) {
		return "", false
	}
	return parts[1], true
}

// requireCapability gates a route on one object/action pair. Session actors
// go through the role capability table; API keys are narrowed by their
// scope list instead.
func (s *Server) requireCapability(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := adminctx.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		switch actor.AuthKind {
		case adminctx.AuthAPIKey:
			required := authscope.FromAuthz(object, action)
			if required == "" || !authscope.Has(actor.Scopes, required) {
				AbortWithError(c, ErrForbidden)
				return
			}
		case adminctx.AuthSession:
			subject := "admin:" + actor.ID.String()
			if err := s.authzSvc.Authorize(c.Request.Context(), subject, actor.Role, object, action); err != nil {
				AbortWithError(c, err)
				return
			}
		default:
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}

// MutationRateLimit throttles mutating calls per actor. Reads stay
// unthrottled; expensive exports carry their own limiter.
func (s *Server) MutationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		actor, ok := adminctx.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := s.limiter.AllowActor(c.Request.Context(), actor.ID.String())
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("actor rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			denyRateLimited(c, result.RetryAfter)
			return
		}

		c.Next()
	}
}

func denyRateLimited(c *gin.Context, retryAfter time.Duration) {
	seconds := int(retryAfter / time.Second)
	if retryAfter%time.Second > 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	AbortWithError(c, ErrRateLimited)
}
