package handlers

import (
	"errors"
	"net/http"

	"pixelforge/internal/responses"
	"pixelforge/internal/services"
	"pixelforge/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	documentField = "document"

	// multipartOverhead is the room left above the file limit for part headers and
	// boundaries, so an in-limit file is never cut off by the body cap.
	multipartOverhead = 1 << 20
)

type DocumentHandler struct {
	documentService *services.DocumentService
}

func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// UploadDocument handles POST /api/projects/:id/documents (multipart field "document")
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	// 1. Validate the path before reading the body
	projectID := c.Param("id")
	if _, err := utils.ParseObjectID(projectID); err != nil {
		responses.Fail(c, http.StatusBadRequest, nil, "Invalid project ID format")
		return
	}

	// 2. Parse the multipart body under a hard cap
	maxBytes := h.documentService.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
	form, err := c.MultipartForm()
	if err != nil {
		if bodyTooLarge(err) {
			responses.Fail(c, http.StatusBadRequest, nil, services.SizeLimitMessage(maxBytes))
			return
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			responses.Fail(c, http.StatusBadRequest, nil, "No file uploaded. Please upload a PDF or DOCX file.")
			return
		}
		responses.Fail(c, http.StatusBadRequest, nil, "Upload error: "+err.Error())
		return
	}
	defer func() { _ = form.RemoveAll() }()

	// 3. Exactly one file, in the expected field
	files := form.File[documentField]
	if len(files) == 0 {
		responses.Fail(c, http.StatusBadRequest, nil, "No file uploaded. Please upload a PDF or DOCX file.")
		return
	}
	total := 0
	for _, fhs := range form.File {
		total += len(fhs)
	}
	if total > 1 {
		responses.Fail(c, http.StatusBadRequest, nil, "Only one file allowed per request")
		return
	}

	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer f.Close()

	// 4. Hand over to the intake pipeline
	project, err := h.documentService.UploadDocument(c.Request.Context(), caller, projectID, services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses.Success(c, http.StatusOK, project, "Document uploaded successfully")
}

func bodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// DownloadDocument handles GET /api/projects/:id/documents/:filename
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	target, err := h.documentService.OpenDocument(c.Request.Context(), caller, c.Param("id"), c.Param("filename"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.FileAttachment(target.Path, target.OriginalName)
}
