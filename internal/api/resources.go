package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nursingportal/internal/auth"
	"nursingportal/internal/document"
	"nursingportal/internal/resource"
)

// ListResources returns the filtered and sorted resources with a category breakdown.
func (h *Handler) ListResources(c *gin.Context) {
	all, err := h.resources.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "load resources")
		return
	}
	filter := resource.Filter{
		Search:   c.Query("q"),
		Category: c.Query("category"),
		Level:    c.Query("level"),
	}
	sortKey := resource.SortKey(c.DefaultQuery("sort", string(resource.SortByDate)))
	c.JSON(http.StatusOK, gin.H{
		"resources":  resource.Apply(all, filter, sortKey),
		"categories": resource.CategoryBreakdown(all),
		"total":      len(all),
	})
}

// UploadResource publishes a study resource from a multipart form.
func (h *Handler) UploadResource(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "multipart form required")
		return
	}
	in := resource.NewResource{
		Title:           formValue(form, "title"),
		Description:     formValue(form, "description"),
		Category:        formValue(form, "category"),
		TargetLevels:    form.Value["target_levels"],
		TargetRotations: form.Value["target_rotations"],
	}
	var file *document.File
	if headers := form.File["file"]; len(headers) > 0 {
		f := fileFromHeader(headers[0])
		file = &f
	}
	res, err := h.resources.Upload(c.Request.Context(), in, file, auth.CallerIdentity(c))
	if err != nil {
		h.fail(c, err, "upload resource")
		return
	}
	c.JSON(http.StatusCreated, res)
}

// DeleteResource removes a resource and its stored file.
func (h *Handler) DeleteResource(c *gin.Context) {
	if err := h.resources.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "delete resource")
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordDownload bumps a resource's download counter.
func (h *Handler) RecordDownload(c *gin.Context) {
	n, err := h.resources.RecordDownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "record download")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "download_count": n})
}
