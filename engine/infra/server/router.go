package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/listview/engine/infra/server/middleware/ratelimit"
	"github.com/compozy/listview/engine/infra/server/router"
	"github.com/compozy/listview/engine/infra/server/routes"
	"github.com/compozy/listview/pkg/logger"
	"github.com/compozy/listview/pkg/version"
)

func (s *Server) buildRouter() error {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger.FromContext(s.ctx)))
	if s.monitoring.IsInitialized() {
		r.Use(s.monitoring.GinMiddleware(s.ctx))
	}
	if rl := s.serverConfig.RateLimit; rl.Enabled {
		limits, err := ratelimit.NewManager(rl, s.monitoring.Meter(), routes.Metrics(), routes.HealthVersioned())
		if err != nil {
			return fmt.Errorf("failed to initialize rate limiting: %w", err)
		}
		r.Use(limits.Middleware())
	}
	r.GET(routes.Metrics(), gin.WrapH(s.monitoring.ExporterHandler()))
	r.NoRoute(func(c *gin.Context) {
		router.RespondWithError(c, router.WrapServerError(
			router.ErrNotFoundCode,
			"route not found",
			router.ErrRouteNotDefined,
		))
	})

	api := r.Group(routes.Base())
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get().Version})
	})

	lists := api.Group("/lists")
	lists.GET("", s.handleKinds)
	lists.GET("/:kind", s.handleView)
	lists.POST("/:kind", s.handleCreate)
	lists.PATCH("/:kind/:id", s.handleUpdate)
	lists.DELETE("/:kind/:id", s.handleDelete)
	lists.POST("/:kind/load-more", s.handleLoadMore)
	lists.POST("/:kind/:id/reviews", s.handleReview)
	lists.GET("/:kind/fields", s.handleFields)
	lists.GET("/:kind/options/:field", s.handleOptions)
	lists.GET("/:kind/bounds/:field", s.handleBounds)

	favorites := api.Group("/favorites")
	favorites.GET("/:set", s.handleFavorites)
	favorites.POST("/:set/:id", s.handleToggleFavorite)

	theme := api.Group("/theme")
	theme.GET("", s.handleGetTheme)
	theme.PUT("", s.handleSetTheme)
	theme.POST("/toggle", s.handleToggleTheme)

	s.router = r
	return nil
}
