package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bookdb-api/internal/dto"
	"github.com/noah-isme/bookdb-api/internal/models"
	appErrors "github.com/noah-isme/bookdb-api/pkg/errors"
	"github.com/noah-isme/bookdb-api/pkg/response"
)

type bookmarkService interface {
	List(ctx context.Context, search string) ([]models.BookmarkDetail, error)
	Create(ctx context.Context, req dto.CreateBookmarkRequest, url string) (*models.Bookmark, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Bookmark, error)
	GetPageForBookmarkCreation(ctx context.Context, pageID int64) (*models.DocumentPageDetail, error)
}

// BookmarkHandler exposes the bookmark endpoints.
type BookmarkHandler struct {
	service bookmarkService
}

// NewBookmarkHandler constructs the handler.
func NewBookmarkHandler(service bookmarkService) *BookmarkHandler {
	return &BookmarkHandler{service: service}
}

// PagedViewURL is the viewer address a bookmark points at.
func PagedViewURL(documentID int64, pageNumber int) string {
	return fmt.Sprintf("/documents/view/%d?page=%d&mode=paged", documentID, pageNumber)
}

// List godoc
// @Summary Search bookmarks
// @Tags Bookmarks
// @Produce json
// @Param q query string false "Search in bookmark and document titles"
// @Success 200 {object} response.Envelope
// @Router /bookmarks [get]
func (h *BookmarkHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), strings.TrimSpace(c.Query("q")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Bookmark a page
// @Tags Bookmarks
// @Accept x-www-form-urlencoded
// @Produce json
// @Param documentPageId formData int true "Page ID"
// @Param title formData string false "Title, defaults to the document title and page number"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookmarks/create [post]
func (h *BookmarkHandler) Create(c *gin.Context) {
	var req dto.CreateBookmarkRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bookmark payload"))
		return
	}
	page, err := h.service.GetPageForBookmarkCreation(c.Request.Context(), req.DocumentPageID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if page == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "page does not exist"))
		return
	}
	bookmark, err := h.service.Create(c.Request.Context(), req, PagedViewURL(page.DocumentID, page.PageNumber))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bookmark)
}

// Delete godoc
// @Summary Delete a bookmark
// @Tags Bookmarks
// @Produce json
// @Param id path int true "Bookmark ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookmarks/delete/{id} [post]
func (h *BookmarkHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	deleted, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "bookmark not found"))
		return
	}
	response.OK(c, gin.H{"id": id, "deleted": true})
}

// Go godoc
// @Summary Follow a bookmark
// @Tags Bookmarks
// @Param id path int true "Bookmark ID"
// @Success 302
// @Failure 404 {object} response.Envelope
// @Router /bookmarks/go/{id} [get]
func (h *BookmarkHandler) Go(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	bookmark, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if bookmark == nil || bookmark.URL == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "bookmark not found"))
		return
	}
	c.Redirect(http.StatusFound, bookmark.URL)
}
