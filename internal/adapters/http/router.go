package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/relabs/matchcast/internal/adapters/signal"
	"github.com/relabs/matchcast/internal/app"
	"github.com/relabs/matchcast/internal/app/orch"
	"github.com/relabs/matchcast/internal/config"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, coord *orch.Coordinator, reporter *app.StatusReporter, hub *signal.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("MatchcastSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &Handlers{Coord: coord, Reporter: reporter}

	api := r.Group("/api")
	api.GET("/capabilities", h.Capabilities)

	m := api.Group("/matches/:match")
	m.GET("/status", h.Status)
	m.DELETE("", h.Cleanup)
	m.POST("/transports", h.CreateTransport)
	m.POST("/transports/:transport/connect", h.ConnectTransport)
	m.DELETE("/transports/:transport", h.CloseTransport)
	m.POST("/transports/:transport/producers", h.Produce)
	m.POST("/transports/:transport/consumers", h.Consume)
	m.DELETE("/producers/:producer", h.CloseProducer)
	m.DELETE("/consumers/:consumer", h.CloseConsumer)

	if hub != nil {
		api.GET("/ws/events", func(c *gin.Context) {
			hub.HandleEvents(ctx, c)
		})
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
