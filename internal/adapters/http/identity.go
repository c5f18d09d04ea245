package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chat/internal/domain"
)

const (
	sessionUserKey = "username"
	viewerKey      = "viewer"
)

// UserStore stands in for the external identity store.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, username string) (*domain.User, error)
}

type identityHandlers struct {
	users UserStore
}

type usernameRequest struct {
	Username string `json:"username" binding:"required"`
}

func (h *identityHandlers) register(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid username"})
		return
	}
	u, err := domain.NewUser(req.Username)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, domain.ErrIdentityExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("user", u.Username).Msg("user registered")
	c.JSON(http.StatusCreated, u)
}

func (h *identityHandlers) login(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid username"})
		return
	}
	u, err := h.users.Get(c.Request.Context(), req.Username)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	s := sessions.Default(c)
	s.Set(sessionUserKey, u.Username)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *identityHandlers) logout(c *gin.Context) {
	s := sessions.Default(c)
	s.Clear()
	_ = s.Save()
	c.Status(http.StatusNoContent)
}

func (h *identityHandlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, viewerFrom(c))
}

// requireIdentity resolves the session's username into a live identity.
func (h *identityHandlers) requireIdentity(c *gin.Context) {
	name, _ := sessions.Default(c).Get(sessionUserKey).(string)
	if name == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	u, err := h.users.Get(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("resolve viewer")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Set(viewerKey, u)
	c.Next()
}

func viewerFrom(c *gin.Context) *domain.User {
	u, _ := c.MustGet(viewerKey).(*domain.User)
	return u
}

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrIdentityNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	log.Error().Err(err).Str("module", "adapters.http").Msg("identity lookup")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
