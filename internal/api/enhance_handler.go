package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/enhance"
)

type EnhanceHandler struct {
	service *enhance.Service
}

func NewEnhanceHandler(service *enhance.Service) *EnhanceHandler {
	return &EnhanceHandler{service: service}
}

// Enhance 润色一段简历内容。
func (h *EnhanceHandler) Enhance(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req enhance.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Enhance(c.Request.Context(), userID, req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rateRequest struct {
	Rating int `json:"rating" binding:"required"`
}

// Rate 为自己的润色记录打分。
func (h *EnhanceHandler) Rate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		NotFound(c, "enhancement not found")
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.service.Rate(c.Request.Context(), userID, id, req.Rating); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "rating": req.Rating})
}
