package facilitator

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vorpalengineering/x402-stellar/types"
	"github.com/vorpalengineering/x402-stellar/utils"
)

const (
	defaultDiscoveryLimit = 20
	maxDiscoveryLimit     = 100
)

// handleDiscoveryList serves the catalog, newest first, with optional
// type filtering and offset/limit pagination. A resource query parameter
// narrows the response to that single entry.
func (f *Facilitator) handleDiscoveryList(ctx *gin.Context) {
	if resource := ctx.Query("resource"); resource != "" {
		entry, err := f.store.GetResource(ctx.Request.Context(), resource)
		if err != nil {
			f.log.Error("discovery read failed", map[string]any{"resource": resource, "error": err.Error()})
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "discovery store unavailable"})
			return
		}
		if entry == nil {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "resource not registered"})
			return
		}
		ctx.JSON(http.StatusOK, entry)
		return
	}

	limit := defaultDiscoveryLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	if limit > maxDiscoveryLimit {
		limit = maxDiscoveryLimit
	}

	offset := 0
	if raw := ctx.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return
		}
		offset = parsed
	}

	entries, err := f.store.ListResources(ctx.Request.Context())
	if err != nil {
		f.log.Error("discovery list failed", map[string]any{"error": err.Error()})
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "discovery store unavailable"})
		return
	}

	if typeFilter := ctx.Query("type"); typeFilter != "" {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.Type == typeFilter {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	// Fixed-width RFC 3339 UTC timestamps sort lexicographically.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].LastUpdated != entries[j].LastUpdated {
			return entries[i].LastUpdated > entries[j].LastUpdated
		}
		return entries[i].Resource < entries[j].Resource
	})

	total := len(entries)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	ctx.JSON(http.StatusOK, types.DiscoveryListResponse{
		X402Version: types.X402Version,
		Items:       entries[offset:end],
		Pagination: types.DiscoveryPagination{
			Limit:  limit,
			Offset: offset,
			Total:  total,
		},
	})
}

func (f *Facilitator) handleDiscoveryRegister(ctx *gin.Context) {
	var req types.DiscoveryRegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Resource == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "resource is required"})
		return
	}
	if len(req.Accepts) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "at least one payment requirement is required"})
		return
	}
	for _, requirements := range req.Accepts {
		if err := utils.ValidateRequirements(&requirements); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	resourceType := req.Type
	if resourceType == "" {
		resourceType = "http"
	}

	entry := &types.DiscoveryResource{
		Resource:    req.Resource,
		Type:        resourceType,
		X402Version: types.X402Version,
		Accepts:     req.Accepts,
		LastUpdated: time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00"),
		Metadata:    req.Metadata,
	}

	if err := f.store.PutResource(ctx.Request.Context(), entry); err != nil {
		f.log.Error("discovery register failed", map[string]any{"resource": req.Resource, "error": err.Error()})
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "discovery store unavailable"})
		return
	}

	ctx.JSON(http.StatusOK, entry)
}

func (f *Facilitator) handleDiscoveryUnregister(ctx *gin.Context) {
	var req types.DiscoveryUnregisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Resource == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "resource is required"})
		return
	}

	if err := f.store.DeleteResource(ctx.Request.Context(), req.Resource); err != nil {
		f.log.Error("discovery unregister failed", map[string]any{"resource": req.Resource, "error": err.Error()})
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "discovery store unavailable"})
		return
	}

	ctx.Status(http.StatusNoContent)
}
