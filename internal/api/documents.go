package api

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"nursingportal/internal/document"
)

func fileFromHeader(fh *multipart.FileHeader) document.File {
	return document.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// ListDocuments returns the filtered, sorted and grouped document listing.
// Stats always cover the whole collection.
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "load documents")
		return
	}
	filter := document.Filter{
		Search:   c.Query("q"),
		Category: c.Query("category"),
		Level:    c.Query("level"),
		Graded:   c.Query("graded"),
		Starred:  c.Query("starred"),
	}
	sortKey := document.SortKey(c.DefaultQuery("sort", string(document.SortByDate)))
	visible := document.Apply(docs, filter, sortKey)
	c.JSON(http.StatusOK, gin.H{
		"documents": visible,
		"groups":    document.GroupBy(visible, document.GroupKey(c.Query("group"))),
		"stats":     document.Summarize(docs),
	})
}

// UploadDocuments stores one or more files for a student. Expects a multipart
// form with student_id, category and files.
func (h *Handler) UploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "multipart form required")
		return
	}
	headers := append(form.File["files"], form.File["file"]...)
	files := make([]document.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, fileFromHeader(fh))
	}

	ctx := c.Request.Context()
	st, err := h.roster.Get(ctx, formValue(form, "student_id"))
	if err != nil {
		h.fail(c, err, "upload documents")
		return
	}
	docs, err := h.documents.Upload(ctx, st, formValue(form, "category"), files)
	if err != nil {
		if len(docs) == 0 {
			h.fail(c, err, "upload documents")
			return
		}
		h.refreshStats(ctx)
		h.failWith(c, err, "upload documents", gin.H{"documents": docs})
		return
	}
	h.refreshStats(ctx)
	c.JSON(http.StatusCreated, gin.H{"documents": docs})
}

// DeleteDocument removes a document and its stored file.
func (h *Handler) DeleteDocument(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.documents.Delete(ctx, c.Param("id")); err != nil {
		h.fail(c, err, "delete document")
		return
	}
	h.refreshStats(ctx)
	c.Status(http.StatusNoContent)
}

// GradeDocument records a grade and feedback.
func (h *Handler) GradeDocument(c *gin.Context) {
	var in document.GradeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid grade payload")
		return
	}
	ctx := c.Request.Context()
	if err := h.documents.Grade(ctx, c.Param("id"), in); err != nil {
		h.fail(c, err, "save grade")
		return
	}
	h.refreshStats(ctx)
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "graded": true})
}

// StarDocument toggles the star flag.
func (h *Handler) StarDocument(c *gin.Context) {
	starred, err := h.documents.ToggleStar(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "update document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "starred": starred})
}
