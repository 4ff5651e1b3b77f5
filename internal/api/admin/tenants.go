// Package admin implements the administrative HTTP handlers for the tenant
// lifecycle: provisioning, inspection, soft delete, and full deletion. These
// endpoints are operator-facing and expected to sit behind a private network
// or gateway-level authentication.
package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atriumhq/atrium/internal/config"
	"github.com/atriumhq/atrium/internal/tenancy"
)

// TenantHandlers handles tenant lifecycle endpoints.
type TenantHandlers struct {
	cfg         *config.Config
	provisioner *tenancy.Provisioner
	deleter     *tenancy.Deleter
	store       tenancy.Store
}

// NewTenantHandlers creates a new TenantHandlers instance.
func NewTenantHandlers(cfg *config.Config, provisioner *tenancy.Provisioner, deleter *tenancy.Deleter, store tenancy.Store) *TenantHandlers {
	return &TenantHandlers{
		cfg:         cfg,
		provisioner: provisioner,
		deleter:     deleter,
		store:       store,
	}
}

// ProvisionTenantRequest is the request body for tenant provisioning. The
// options object overrides the configured step defaults per call; absent
// fields keep the configured value.
type ProvisionTenantRequest struct {
	OrganizationName string  `json:"organization_name"`
	ContactEmail     string  `json:"contact_email"`
	Phone            string  `json:"phone"`
	OrganizationID   *string `json:"organization_id"`
	PlanID           *string `json:"plan_id"`
	IsTrial          bool    `json:"is_trial"`
	AdminName        string  `json:"admin_name"`
	AdminEmail       string  `json:"admin_email"`
	AdminPassword    string  `json:"admin_password"`

	Options *ProvisionOptionsOverride `json:"options"`
}

// ProvisionOptionsOverride carries per-call step toggles. Pointers distinguish
// "not supplied" from an explicit false.
type ProvisionOptionsOverride struct {
	CreateUser           *bool `json:"create_user"`
	CreateSubscription   *bool `json:"create_subscription"`
	SendWelcomeEmail     *bool `json:"send_welcome_email"`
	SeedDropdowns        *bool `json:"seed_dropdowns"`
	CreateBucket         *bool `json:"create_bucket"`
	SendSaaSNotification *bool `json:"send_saas_notification"`
	InitializeAuditLog   *bool `json:"initialize_audit_log"`
	UseTransaction       *bool `json:"use_transaction"`
}

// provisionOptions layers the request's overrides over the configured
// defaults.
func (h *TenantHandlers) provisionOptions(override *ProvisionOptionsOverride) tenancy.ProvisionOptions {
	p := h.cfg.Provisioning
	opts := tenancy.ProvisionOptions{
		CreateUser:           p.CreateUser,
		CreateSubscription:   p.CreateSubscription,
		SendWelcomeEmail:     p.SendWelcomeEmail,
		SeedDropdowns:        p.SeedDropdowns,
		CreateBucket:         p.CreateBucket,
		SendSaaSNotification: p.SendSaaSNotification,
		InitializeAuditLog:   p.InitializeAuditLog,
		UseTransaction:       p.UseTransaction,
	}
	if override == nil {
		return opts
	}
	apply := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&opts.CreateUser, override.CreateUser)
	apply(&opts.CreateSubscription, override.CreateSubscription)
	apply(&opts.SendWelcomeEmail, override.SendWelcomeEmail)
	apply(&opts.SeedDropdowns, override.SeedDropdowns)
	apply(&opts.CreateBucket, override.CreateBucket)
	apply(&opts.SendSaaSNotification, override.SendSaaSNotification)
	apply(&opts.InitializeAuditLog, override.InitializeAuditLog)
	apply(&opts.UseTransaction, override.UseTransaction)
	return opts
}

// ProvisionTenantHandler creates a tenant end-to-end.
// POST /v1/admin/tenants
func (h *TenantHandlers) ProvisionTenantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProvisionTenantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		input := tenancy.ProvisionInput{
			OrganizationName: req.OrganizationName,
			ContactEmail:     req.ContactEmail,
			Phone:            req.Phone,
			OrganizationID:   req.OrganizationID,
			PlanID:           req.PlanID,
			IsTrial:          req.IsTrial,
			AdminName:        req.AdminName,
			AdminEmail:       req.AdminEmail,
			AdminPassword:    req.AdminPassword,
		}

		result, err := h.provisioner.ProvisionTenant(c.Request.Context(), input, h.provisionOptions(req.Options))
		if err != nil {
			status := provisionErrorStatus(err)
			body := gin.H{"error": err.Error()}
			if result != nil && len(result.Steps) > 0 {
				body["steps"] = result.Steps
			}
			c.JSON(status, body)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"tenant":            result.Tenant,
			"organization":      result.Organization,
			"plan":              result.Plan,
			"bucket":            result.Bucket,
			"audit_log_written": result.AuditLogWritten,
			"steps":             result.Steps,
		})
	}
}

// GetTenantHandler returns one tenant by ID.
// GET /v1/admin/tenants/:id
func (h *TenantHandlers) GetTenantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := h.store.GetTenantByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tenant"})
			return
		}
		if tenant == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		c.JSON(http.StatusOK, tenant)
	}
}

// DeleteTenantRequest is the optional request body for full deletion.
type DeleteTenantRequest struct {
	DeleteStorage          *bool  `json:"delete_storage"`
	ImmediateStorageDelete *bool  `json:"immediate_storage_delete"`
	DeleteDatabase         *bool  `json:"delete_database"`
	ForceDelete            *bool  `json:"force_delete"`
	CreateFinalAuditLog    *bool  `json:"create_final_audit_log"`
	Actor                  string `json:"actor"`
}

// DeleteTenantHandler removes a tenant completely.
// DELETE /v1/admin/tenants/:id
func (h *TenantHandlers) DeleteTenantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := tenancy.DefaultDeleteOptions()
		opts.RetentionDays = int32(h.cfg.Deletion.RetentionDays)

		var req DeleteTenantRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
				return
			}
		}
		if req.DeleteStorage != nil {
			opts.DeleteStorage = *req.DeleteStorage
		}
		if req.ImmediateStorageDelete != nil {
			opts.ImmediateStorageDelete = *req.ImmediateStorageDelete
		}
		if req.DeleteDatabase != nil {
			opts.DeleteDatabase = *req.DeleteDatabase
		}
		if req.ForceDelete != nil {
			opts.ForceDelete = *req.ForceDelete
		}
		if req.CreateFinalAuditLog != nil {
			opts.CreateFinalAuditLog = *req.CreateFinalAuditLog
		}
		if req.Actor != "" {
			opts.Actor = req.Actor
		}

		result, err := h.deleter.DeleteTenantCompletely(c.Request.Context(), c.Param("id"), opts)
		if err != nil {
			body := gin.H{"error": err.Error()}
			if result != nil {
				body["result"] = result
			}
			c.JSON(deleteErrorStatus(err), body)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// SoftDeleteTenantRequest is the request body for a soft delete.
type SoftDeleteTenantRequest struct {
	Actor string `json:"actor"`
}

// SoftDeleteTenantHandler marks a tenant inactive without removing any data.
// POST /v1/admin/tenants/:id/soft-delete
func (h *TenantHandlers) SoftDeleteTenantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SoftDeleteTenantRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
				return
			}
		}

		tenant, err := h.deleter.SoftDeleteTenant(c.Request.Context(), c.Param("id"), tenancy.SoftDeleteOptions{Actor: req.Actor})
		if err != nil {
			c.JSON(deleteErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, tenant)
	}
}

func provisionErrorStatus(err error) int {
	var validationErr *tenancy.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, tenancy.ErrDuplicateName), errors.Is(err, tenancy.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, tenancy.ErrOrganizationNotFound), errors.Is(err, tenancy.ErrPlanNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func deleteErrorStatus(err error) int {
	var activeUsersErr *tenancy.ActiveUsersError
	switch {
	case errors.Is(err, tenancy.ErrTenantNotFound):
		return http.StatusNotFound
	case errors.As(err, &activeUsersErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
