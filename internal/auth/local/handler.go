package local

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/openagora/agora/internal/audit/domain"
	authdomain "github.com/openagora/agora/internal/auth/domain"
	"github.com/openagora/agora/internal/auth/session"
	"go.uber.org/zap"
)

// Handler manages session auth endpoints.
type Handler struct {
	authsvc  authdomain.Service
	auditsvc auditdomain.Service
	sessions *session.Manager
	log      *zap.Logger
}

func NewHandler(authsvc authdomain.Service, auditsvc auditdomain.Service, sessions *session.Manager, log *zap.Logger) *Handler {
	return &Handler{
		authsvc:  authsvc,
		auditsvc: auditsvc,
		sessions: sessions,
		log:      log.Named("auth.local.handler"),
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	group := r.Group("/auth")
	group.POST("/login", h.Login)
	group.POST("/logout", h.Logout)
	group.GET("/me", h.Me)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	IsDefault   bool   `json:"is_default"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAuthError(c, http.StatusBadRequest, "invalid_request")
		return
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		writeAuthError(c, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	result, err := h.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		writeAuthError(c, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	h.sessions.Set(c, result.RawToken, result.ExpiresAt)

	userID := result.UserID.String()
	if err := h.auditsvc.Record(c.Request.Context(), string(auditdomain.ActorTypeAdmin), &userID, "auth.login", "session", nil, nil); err != nil {
		h.log.Warn("login audit failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, result.Session)
}

func (h *Handler) Logout(c *gin.Context) {
	token, ok := h.sessions.ReadToken(c)
	if !ok {
		writeAuthError(c, http.StatusUnauthorized, "invalid_session")
		return
	}
	if err := h.authsvc.Logout(c.Request.Context(), token); err != nil {
		writeAuthError(c, http.StatusUnauthorized, "invalid_session")
		return
	}

	h.sessions.Clear(c)

	if err := h.auditsvc.Record(c.Request.Context(), "", nil, "auth.logout", "session", nil, nil); err != nil {
		h.log.Warn("logout audit failed", zap.Error(err))
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	token, ok := h.sessions.ReadToken(c)
	if !ok {
		writeAuthError(c, http.StatusUnauthorized, "invalid_session")
		return
	}

	sess, err := h.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		writeAuthError(c, http.StatusUnauthorized, "invalid_session")
		return
	}

	user, err := h.authsvc.GetUser(c.Request.Context(), sess.UserID)
	if err != nil {
		writeAuthError(c, http.StatusUnauthorized, "invalid_session")
		return
	}

	c.JSON(http.StatusOK, userResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		IsDefault:   user.IsDefault,
	})
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func writeAuthError(c *gin.Context, status int, code string) {
	c.JSON(status, gin.H{"error": code})
}
