package handlers

import (
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lumiere/salon/internal/models"
	"lumiere/salon/internal/repository"
	"lumiere/salon/internal/service"
)

type adminCategoryResponse struct {
	categoryResponse
	SortOrder   int  `json:"sortOrder"`
	IsPublished bool `json:"isPublished"`
}

func toAdminCategoryResponse(category models.Category) adminCategoryResponse {
	return adminCategoryResponse{
		categoryResponse: categoryResponse{
			ID:       category.ID,
			Name:     category.Name,
			Slug:     category.Slug,
			ImageURL: category.ImageURL,
		},
		SortOrder:   category.SortOrder,
		IsPublished: category.IsPublished,
	}
}

// AdminListCategories returns every category, published or not, straight
// from the repository (no cache).
func (h HandlerSet) AdminListCategories(c *gin.Context) {
	all, err := h.categories.List(c.Request.Context(), false)
	if err != nil {
		h.log.Error().Err(err).Msg("admin list categories failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]adminCategoryResponse, 0, len(all))
	for _, category := range all {
		resp = append(resp, toAdminCategoryResponse(category))
	}

	c.JSON(http.StatusOK, resp)
}

// categoryForm reads the multipart form the admin UI submits: text fields
// plus an optional image file.
func categoryForm(c *gin.Context) (service.CategoryInput, error) {
	sortOrder, _ := strconv.Atoi(c.PostForm("sortOrder"))
	published := c.PostForm("isPublished") == "true"

	input := service.CategoryInput{
		Name:        c.PostForm("name"),
		Slug:        c.PostForm("slug"),
		SortOrder:   sortOrder,
		IsPublished: published,
	}
	if input.Name == "" {
		return service.CategoryInput{}, errors.New("Name is required")
	}

	if file, _, err := c.Request.FormFile("image"); err == nil {
		input.Image = file
	}
	return input, nil
}

func (h HandlerSet) AdminCreateCategory(c *gin.Context) {
	input, err := categoryForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeIfOpen(input.Image)

	category, err := h.catalog.CreateCategory(c.Request.Context(), input)
	if err != nil {
		h.respondCatalogError(c, err, "create category")
		return
	}

	c.JSON(http.StatusCreated, toAdminCategoryResponse(category))
}

func (h HandlerSet) AdminUpdateCategory(c *gin.Context) {
	input, err := categoryForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeIfOpen(input.Image)

	category, err := h.catalog.UpdateCategory(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		h.respondCatalogError(c, err, "update category")
		return
	}

	c.JSON(http.StatusOK, toAdminCategoryResponse(category))
}

func (h HandlerSet) AdminDeleteCategory(c *gin.Context) {
	if err := h.catalog.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		h.respondCatalogError(c, err, "delete category")
		return
	}
	c.Status(http.StatusNoContent)
}

type adminServiceResponse struct {
	serviceResponse
	IsPublished bool `json:"isPublished"`
}

func (h HandlerSet) AdminListServices(c *gin.Context) {
	services, err := h.services.List(c.Request.Context(), false)
	if err != nil {
		h.log.Error().Err(err).Msg("admin list services failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]adminServiceResponse, 0, len(services))
	for _, svc := range services {
		resp = append(resp, adminServiceResponse{
			serviceResponse: toServiceResponse(svc),
			IsPublished:     svc.IsPublished,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func serviceForm(c *gin.Context) (service.ServiceInput, error) {
	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil || price <= 0 {
		return service.ServiceInput{}, errors.New("Price must be a positive number")
	}
	duration, _ := strconv.Atoi(c.PostForm("durationMin"))

	input := service.ServiceInput{
		CategoryID:  c.PostForm("categoryId"),
		Name:        c.PostForm("name"),
		Slug:        c.PostForm("slug"),
		Description: c.PostForm("description"),
		PriceCents:  int64(math.Round(price * 100)),
		DurationMin: duration,
		IsPublished: c.PostForm("isPublished") == "true",
	}
	if input.Name == "" || input.CategoryID == "" {
		return service.ServiceInput{}, errors.New("Name and categoryId are required")
	}

	if file, _, err := c.Request.FormFile("image"); err == nil {
		input.Image = file
	}
	return input, nil
}

func (h HandlerSet) AdminCreateService(c *gin.Context) {
	input, err := serviceForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeIfOpen(input.Image)

	svc, err := h.catalog.CreateService(c.Request.Context(), input)
	if err != nil {
		h.respondCatalogError(c, err, "create service")
		return
	}

	c.JSON(http.StatusCreated, adminServiceResponse{
		serviceResponse: toServiceResponse(svc),
		IsPublished:     svc.IsPublished,
	})
}

func (h HandlerSet) AdminUpdateService(c *gin.Context) {
	input, err := serviceForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer closeIfOpen(input.Image)

	svc, err := h.catalog.UpdateService(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		h.respondCatalogError(c, err, "update service")
		return
	}

	c.JSON(http.StatusOK, adminServiceResponse{
		serviceResponse: toServiceResponse(svc),
		IsPublished:     svc.IsPublished,
	})
}

func (h HandlerSet) AdminDeleteService(c *gin.Context) {
	if err := h.catalog.DeleteService(c.Request.Context(), c.Param("id")); err != nil {
		h.respondCatalogError(c, err, "delete service")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) respondCatalogError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, repository.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
	case errors.Is(err, repository.ErrServiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
	case errors.Is(err, service.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image format"})
	default:
		h.log.Error().Err(err).Str("op", op).Msg("catalog operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func closeIfOpen(file multipart.File) {
	if file != nil {
		_ = file.Close()
	}
}
