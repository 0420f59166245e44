package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/smallbiznis/genstudio/internal/entitlement/domain"
)

const maxAPIKeyTTLDays = 3650

type issueAPIKeyRequest struct {
	Name    string `json:"name"`
	TTLDays int    `json:"ttl_days"`
}

// IssueAPIKey lets a signed-in caller mint a key for programmatic access.
func (s *Server) IssueAPIKey(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req issueAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.TTLDays < 0 || req.TTLDays > maxAPIKeyTTLDays {
		AbortWithError(c, newValidationError("ttl_days", "invalid_ttl_days", "ttl_days must be between 0 and 3650"))
		return
	}

	issued, err := s.apiKeys.Issue(c.Request.Context(), caller, req.Name, time.Duration(req.TTLDays)*24*time.Hour)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issued)
}

// SyncEntitlement receives paid-plan changes from billing.
func (s *Server) SyncEntitlement(c *gin.Context) {
	var req entitlementdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ent, err := s.entitlements.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ent)
}
