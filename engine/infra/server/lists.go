package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/core"
	"github.com/compozy/listview/engine/infra/server/router"
	"github.com/compozy/listview/engine/query"
	"github.com/compozy/listview/pkg/logger"
)

type kindInfo struct {
	Name    string   `json:"name"`
	Remote  bool     `json:"remote"`
	Slot    string   `json:"slot,omitempty"`
	Columns []string `json:"columns"`
}

type optionsResponse struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

type boundsResponse struct {
	Field string   `json:"field"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

func (s *Server) handleKinds(c *gin.Context) {
	kinds := catalog.Kinds()
	out := make([]kindInfo, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, kindInfo{Name: k.Name, Remote: k.Remote, Slot: k.Slot, Columns: k.Columns})
	}
	c.JSON(http.StatusOK, gin.H{"kinds": out})
}

// listFor resolves the :kind parameter, responding with the error itself.
func (s *Server) listFor(c *gin.Context) (catalog.List, bool) {
	l, err := s.list(c.Request.Context(), c.Param("kind"))
	if err != nil {
		router.RespondWithError(c, err)
		return nil, false
	}
	return l, true
}

// handleView renders the list through the descriptor in the query string.
// Views carry an ETag so clients can poll cheaply.
func (s *Server) handleView(c *gin.Context) {
	l, ok := s.listFor(c)
	if !ok {
		return
	}
	desc, err := s.viewDescriptor(c)
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	view, err := l.Render(desc)
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	etag := `"` + core.ETagFromAny(view) + `"`
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, view)
}

// viewDescriptor parses the query string and, with favorites=true, limits
// the view to the kind's favorites set.
func (s *Server) viewDescriptor(c *gin.Context) (query.Descriptor, error) {
	values := c.Request.URL.Query()
	desc, err := router.ParseDescriptor(values)
	if err != nil {
		return desc, err
	}
	only, err := router.ParseFavoritesOnly(values)
	if err != nil || !only {
		return desc, err
	}
	kind := c.Param("kind")
	if _, err := catalog.FavoritesSlotFor(kind); err != nil {
		return desc, err
	}
	favs, err := s.favoriteSet(c.Request.Context(), kind)
	if err != nil {
		return desc, err
	}
	return desc.WithIDs(favs.List()), nil
}

func (s *Server) handleCreate(c *gin.Context) {
	l, ok := s.listFor(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		router.RespondWithError(c, router.WrapServerError(router.ErrBadRequestCode, "failed to read body", err))
		return
	}
	view, err := l.Create(c.Request.Context(), raw)
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (s *Server) handleUpdate(c *gin.Context) {
	l, ok := s.listFor(c)
	if !ok {
		return
	}
	var patch collection.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		router.RespondWithError(c, router.WrapServerError(router.ErrBadRequestCode, "invalid patch body", err))
		return
	}
	view, err := l.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type reviewRequest struct {
	Text string `json:"text" binding:"required"`
}

// handleReview appends a review; only restrooms take them.
func (s *Server) handleReview(c *gin.Context) {
	l, ok := s.listFor(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		router.RespondWithError(c, router.WrapServerError(router.ErrBadRequestCode, "invalid review body", err))
		return
	}
	view, err := catalog.AddReview(c.Request.Context(), l, c.Param("id"), req.Text)
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleDelete(c *gin.Context) {
	l, ok := s.listFor(c)
	if !ok {
		return
	}
	view, err := l.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleLoadMore(c *gin.Context) {
	l, ok := s.listFor(c)
	if !ok {
		return
	}
	if !l.Remote() {
		router.RespondWithError(c, router.NewServerError(router.ErrBadRequestCode, l.Kind()+" is not a remote list"))
		return
	}
	view, err := l.LoadMore(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("Load more failed", "kind", l.Kind(), "error", err)
		router.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleFields(c *gin.Context) {
	l, ok := s.listFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": l.Kind(), "fields": l.Fields()})
}

func (s *Server) handleOptions(c *gin.Context) {
	l, ok := s.listFor(c)
	if !ok {
		return
	}
	field := c.Param("field")
	values, err := l.Options(field)
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	c.JSON(http.StatusOK, optionsResponse{Field: field, Values: values})
}

func (s *Server) handleBounds(c *gin.Context) {
	l, ok := s.listFor(c)
	if !ok {
		return
	}
	field := c.Param("field")
	lo, hi, found, err := l.Bounds(field)
	if err != nil {
		router.RespondWithError(c, err)
		return
	}
	resp := boundsResponse{Field: field}
	if found {
		resp.Min, resp.Max = &lo, &hi
	}
	c.JSON(http.StatusOK, resp)
}
