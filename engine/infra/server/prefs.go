package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/infra/server/router"
)

type themeBody struct {
	Theme catalog.Theme `json:"theme" binding:"required"`
}

type favoriteToggle struct {
	ID        string `json:"id"`
	Favorite  bool   `json:"favorite"`
	SaveError string `json:"save_error,omitempty"`
}

func (s *Server) handleGetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, themeBody{Theme: s.themes.Get(c.Request.Context())})
}

func (s *Server) handleSetTheme(c *gin.Context) {
	var body themeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		router.RespondWithError(c, router.WrapServerError(router.ErrBadRequestCode, "invalid theme body", err))
		return
	}
	theme, err := catalog.ParseTheme(string(body.Theme))
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	if err := s.themes.Set(c.Request.Context(), theme); err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, themeBody{Theme: theme})
}

func (s *Server) handleToggleTheme(c *gin.Context) {
	theme, err := s.themes.Toggle(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, themeBody{Theme: theme})
}

func (s *Server) handleFavorites(c *gin.Context) {
	favs, err := s.favoriteSet(c.Request.Context(), c.Param("set"))
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"set": c.Param("set"), "ids": favs.List()})
}

// handleToggleFavorite flips one id. A failed save is reported in the body;
// the set itself has changed.
func (s *Server) handleToggleFavorite(c *gin.Context) {
	favs, err := s.favoriteSet(c.Request.Context(), c.Param("set"))
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	id := c.Param("id")
	added, err := favs.Toggle(c.Request.Context(), id)
	resp := favoriteToggle{ID: id, Favorite: added}
	if err != nil {
		resp.Favorite = favs.Contains(id)
		resp.SaveError = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
