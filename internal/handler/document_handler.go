package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bookdb-api/internal/dto"
	"github.com/noah-isme/bookdb-api/internal/models"
	appErrors "github.com/noah-isme/bookdb-api/pkg/errors"
	"github.com/noah-isme/bookdb-api/pkg/response"
)

// multipartOverhead leaves room for the form fields around the file part.
const multipartOverhead = 1 << 20

type documentService interface {
	List(ctx context.Context, query dto.DocumentListQuery) ([]models.Document, *models.Pagination, error)
	UploadConstraints() dto.UploadConstraints
	Create(ctx context.Context, upload *dto.FileUpload, form dto.DocumentForm) (*models.Document, error)
	View(ctx context.Context, id int64, query dto.DocumentViewQuery) (*models.DocumentView, error)
	GetByID(ctx context.Context, id int64) (*models.Document, error)
	Update(ctx context.Context, id int64, upload *dto.FileUpload, form dto.DocumentForm) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListBookmarks(ctx context.Context) ([]models.BookmarkDetail, error)
}

type pageEditService interface {
	GetPageDetail(ctx context.Context, id int64) (*models.DocumentPageDetail, error)
	UpdateText(ctx context.Context, id int64, text string) (*models.DocumentPage, error)
}

// DocumentHandler exposes the document endpoints.
type DocumentHandler struct {
	documents      documentService
	pages          pageEditService
	maxUploadBytes int64
}

// NewDocumentHandler constructs the handler. maxUploadBytes <= 0 disables the body limit.
func NewDocumentHandler(documents documentService, pages pageEditService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{documents: documents, pages: pages, maxUploadBytes: maxUploadBytes}
}

// List godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param q query string false "Search in title, author and category"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	var query dto.DocumentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid list parameters"))
		return
	}
	items, pagination, err := h.documents.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// CreateForm godoc
// @Summary Upload constraints
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /documents/create [get]
func (h *DocumentHandler) CreateForm(c *gin.Context) {
	response.OK(c, h.documents.UploadConstraints())
}

// Create godoc
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document (.pdf, .docx, .txt)"
// @Param title formData string true "Title"
// @Param category formData string false "Category"
// @Param author formData string false "Author"
// @Param description formData string false "Description"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /documents/create [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	form, upload, closeFile, err := h.bindDocumentForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	doc, err := h.documents.Create(c.Request.Context(), upload, form)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// View godoc
// @Summary View a document
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Param page query int false "Page number in paged mode"
// @Param mode query string false "original or paged"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/view/{id} [get]
func (h *DocumentHandler) View(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.DocumentViewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid view parameters"))
		return
	}
	view, err := h.documents.View(c.Request.Context(), id, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Delete godoc
// @Summary Delete a document
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/delete/{id} [post]
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	deleted, err := h.documents.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "document not found"))
		return
	}
	response.OK(c, gin.H{"id": id, "deleted": true})
}

// EditForm godoc
// @Summary Load a document for editing
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/edit/{id} [get]
func (h *DocumentHandler) EditForm(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.documents.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// Edit godoc
// @Summary Update a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Document ID"
// @Param file formData file false "Replacement file"
// @Param title formData string true "Title"
// @Param category formData string false "Category"
// @Param author formData string false "Author"
// @Param description formData string false "Description"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/edit/{id} [post]
func (h *DocumentHandler) Edit(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	form, upload, closeFile, err := h.bindDocumentForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	updated, err := h.documents.Update(c.Request.Context(), id, upload, form)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !updated {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "document not found"))
		return
	}
	doc, err := h.documents.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// EditPageForm godoc
// @Summary Load a page for editing
// @Tags Pages
// @Produce json
// @Param id path int true "Page ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/edit-page/{id} [get]
func (h *DocumentHandler) EditPageForm(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.pages.GetPageDetail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// EditPage godoc
// @Summary Replace the text of a page
// @Tags Pages
// @Accept x-www-form-urlencoded
// @Produce json
// @Param id path int true "Page ID"
// @Param id formData int true "Page ID, must match the path"
// @Param textContent formData string false "Page text"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/edit-page/{id} [post]
func (h *DocumentHandler) EditPage(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdatePageRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid page payload"))
		return
	}
	if req.ID != id {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "page id mismatch"))
		return
	}
	page, err := h.pages.UpdateText(c.Request.Context(), id, req.TextContent)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// Bookmarks godoc
// @Summary List every bookmark
// @Tags Bookmarks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /documents/bookmark [get]
func (h *DocumentHandler) Bookmarks(c *gin.Context) {
	items, err := h.documents.ListBookmarks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// bindDocumentForm reads the metadata fields and the optional "file" part. The returned
// close function is always safe to call.
func (h *DocumentHandler) bindDocumentForm(c *gin.Context) (dto.DocumentForm, *dto.FileUpload, func(), error) {
	noop := func() {}
	var form dto.DocumentForm
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, nil, noop, appErrors.Clone(appErrors.ErrTooLarge, "upload exceeds the size limit")
		}
		return form, nil, noop, appErrors.Clone(appErrors.ErrValidation, "invalid document payload")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return form, nil, noop, nil
		}
		return form, nil, noop, appErrors.Clone(appErrors.ErrValidation, "invalid file part")
	}
	file, closeFile, err := openUpload(fileHeader)
	return form, file, closeFile, err
}

func openUpload(fileHeader *multipart.FileHeader) (*dto.FileUpload, func(), error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, func() {}, appErrors.Internal(err, "failed to open file")
	}
	return &dto.FileUpload{
		FileName:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     src,
	}, func() { _ = src.Close() }, nil
}
