package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pbx-admin/internal/auth"
	"pbx-admin/internal/calls"
	"pbx-admin/internal/extensions"
	"pbx-admin/internal/rbac"
	"pbx-admin/internal/switchctl"
	"pbx-admin/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Switch     *switchctl.Controller
	Calls      *calls.Service
	Extensions *extensions.Service
	Audit      Auditor
}

// Auditor is the slice of the audit service the HTTP layer needs.
type Auditor interface {
	LogSwitchControl(ctx context.Context, accountID int64, actorUserID, actorRole, ip, command, message string) error
}

// --- Auth ---

type loginRequest struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.AccountID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, account_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.AccountID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Switch control ---

func (h Handlers) SwitchStatus(c *gin.Context) {
	h.respondSwitch(c, "status", h.Switch.Status(c.Request.Context()))
}

func (h Handlers) SofiaStatus(c *gin.Context) {
	h.respondSwitch(c, "sofia status", h.Switch.SofiaStatus(c.Request.Context()))
}

// ShowRegistrations fetches the live SIP registrations and, on success,
// refreshes the liveness cache that the call authorizer reads.
func (h Handlers) ShowRegistrations(c *gin.Context) {
	ctx := c.Request.Context()
	table, res := h.Switch.ShowRegistrations(ctx)
	if res.Status && h.Extensions != nil {
		if aid, ok := accountID(c); ok {
			h.Extensions.SyncRegistrations(ctx, aid, table.Rows)
		}
	}
	h.respondSwitch(c, "show registrations", res)
}

func (h Handlers) ReloadConfiguration(c *gin.Context) {
	h.respondSwitch(c, "reloadxml", h.Switch.ReloadConfiguration(c.Request.Context()))
}

func (h Handlers) ReloadAccessList(c *gin.Context) {
	h.respondSwitch(c, "reloadacl", h.Switch.ReloadAccessList(c.Request.Context()))
}

func (h Handlers) Shutdown(c *gin.Context) {
	h.respondSwitch(c, "shutdown", h.Switch.Shutdown(c.Request.Context()))
}

func (h Handlers) SubscribeEvents(c *gin.Context) {
	h.respondSwitch(c, "event json ALL", h.Switch.SubscribeAllEvents(c.Request.Context()))
}

// --- Call origination ---

type originateRequest struct {
	Src         string `json:"src"`
	Destination string `json:"destination"`
	AccountID   int64  `json:"account_id"`
}

// Originate places a call between two tenant extensions. The requesting
// user always comes from the authenticated identity; a body account_id
// must match the token's account unless the caller is super_admin.
func (h Handlers) Originate(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	var req originateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()
	userID, err := auth.UserID(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	aid, ok := accountID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
		return
	}
	target := req.AccountID
	if target == 0 {
		target = aid
	}
	if target != aid {
		role, _ := auth.Role(ctx)
		if !rbac.IsSuperAdmin(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}

	res, err := h.Calls.Place(ctx, calls.OriginationRequest{
		Src:              req.Src,
		Destination:      req.Destination,
		AccountID:        target,
		RequestingUserID: userID,
	})
	if err != nil {
		var authErr *calls.AuthorizationError
		switch {
		case errors.As(err, &authErr):
			c.JSON(http.StatusUnprocessableEntity, switchctl.Result{Status: false, Message: authErr.Message})
		case errors.Is(err, calls.ErrInvalidArgument):
			c.JSON(http.StatusBadRequest, switchctl.Result{Status: false, Message: "src and destination are required"})
		default:
			logger.From(ctx).Error("originate failed", "err", err)
			c.JSON(http.StatusInternalServerError, switchctl.Result{Status: false, Message: "internal error"})
		}
		return
	}
	if !res.Status {
		c.JSON(http.StatusInternalServerError, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// respondSwitch maps the uniform facade result to a status code and logs
// the command to the audit trail. An unreachable switch is the only
// failure a facade operation reports, and it is a server-side fault.
func (h Handlers) respondSwitch(c *gin.Context, command string, res switchctl.Result) {
	if h.Audit != nil {
		if aid, ok := accountID(c); ok {
			actor, _ := auth.UserID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			if err := h.Audit.LogSwitchControl(c.Request.Context(), aid, actor, role, c.ClientIP(), command, res.Message); err != nil {
				logger.From(c.Request.Context()).Warn("switch audit failed", "err", err)
			}
		}
	}
	if !res.Status {
		c.JSON(http.StatusInternalServerError, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// accountID parses the numeric tenant id out of the string claim.
func accountID(c *gin.Context) (int64, bool) {
	raw, err := auth.AccountID(c.Request.Context())
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Convenience middleware bundles.

func RequireAccountAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireAccount(), rbac.RequireAnyRole(roles...)}
}
