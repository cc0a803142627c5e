package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/app"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

// AdminAPI is the tenant and resource management surface.
type AdminAPI interface {
	CreateTenant(ctx context.Context, in app.CreateTenantInput) (domain.Tenant, error)
	GetTenant(ctx context.Context, id string) (domain.Tenant, error)
	CreateResource(ctx context.Context, in app.CreateResourceInput) (domain.Resource, error)
	ListResources(ctx context.Context, tenantID string) ([]domain.Resource, error)
	SetResourceActive(ctx context.Context, tenantID, resourceID string, active bool) error
}

type createTenantRequest struct {
	Name string `json:"name"`
}

type tenantResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BookingsCount int64  `json:"bookings_count"`
}

type createResourceRequest struct {
	Name string `json:"name"`
}

type resourceResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type setResourceActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func handleCreateTenant(svc AdminAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTenantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		tenant, err := svc.CreateTenant(c.Request.Context(), app.CreateTenantInput{Name: req.Name})
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toTenantResponse(tenant))
	}
}

func handleGetTenant(svc AdminAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := svc.GetTenant(c.Request.Context(), c.Param("tenantID"))
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, toTenantResponse(tenant))
	}
}

func handleCreateResource(svc AdminAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createResourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		resource, err := svc.CreateResource(c.Request.Context(), app.CreateResourceInput{
			TenantID: c.Param("tenantID"),
			Name:     req.Name,
		})
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toResourceResponse(resource))
	}
}

func handleListResources(svc AdminAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		resources, err := svc.ListResources(c.Request.Context(), c.Param("tenantID"))
		if err != nil {
			respondDomainError(c, err)
			return
		}
		out := make([]resourceResponse, 0, len(resources))
		for _, r := range resources {
			out = append(out, toResourceResponse(r))
		}
		c.JSON(http.StatusOK, gin.H{"resources": out})
	}
}

func handleSetResourceActive(svc AdminAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setResourceActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, codeMissingRequiredField, "active is required")
			return
		}
		err := svc.SetResourceActive(c.Request.Context(), c.Param("tenantID"), c.Param("resourceID"), *req.Active)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func toTenantResponse(t domain.Tenant) tenantResponse {
	return tenantResponse{ID: t.ID, Name: t.Name, BookingsCount: t.BookingsCount}
}

func toResourceResponse(r domain.Resource) resourceResponse {
	return resourceResponse{ID: r.ID, Name: r.Name, Active: r.Active}
}
