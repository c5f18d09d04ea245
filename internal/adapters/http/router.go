package http

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/Chat/internal/adapters/blob"
	"github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/core"
)

const sessionName = "ChatSessions"

// Deps are the services the router exposes.
type Deps struct {
	Orch     *orch.Orchestrator
	History  *app.History
	Users    UserStore
	Audio    *blob.AudioStore
	Location *time.Location
	Signal   signal.Options
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
	}

	id := &identityHandlers{users: deps.Users}
	hist := &historyHandlers{history: deps.History, loc: deps.Location}
	media := &mediaHandlers{audio: deps.Audio}
	ws := signal.NewChatWSController(deps.Orch, deps.Signal)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Str("media", cfg.MediaURL).Msg("router setup")

	api := r.Group("/api")
	api.POST("/users", id.register)
	api.POST("/login", id.login)
	api.POST("/logout", id.logout)
	authed := api.Group("", id.requireIdentity)
	authed.GET("/me", id.me)
	authed.GET("/rooms", func(c *gin.Context) {
		// Only the viewer's own live rooms.
		name := viewerFrom(c).Username
		rooms := lo.Filter(deps.Orch.Rooms.List(), func(ri core.RoomInfo, _ int) bool {
			return ri.Involves(name)
		})
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	})
	authed.GET("/chat/:room", hist.conversation)
	authed.GET("/contacts", hist.contacts)

	r.GET("/ws/chat/:room", id.requireIdentity, func(c *gin.Context) {
		ws.HandleChat(ctx, c, viewerFrom(c))
	})

	r.GET(path.Join(cfg.MediaURL, blob.AudioDir, ":name"), media.serveAudio)

	return r
}
