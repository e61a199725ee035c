package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tracebind/passport-backend/internal/http/response"
	"github.com/tracebind/passport-backend/internal/platform/apierr"
	"github.com/tracebind/passport-backend/internal/services"
)

type CommentHandler struct {
	comments services.CommentService
}

func NewCommentHandler(comments services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// POST /api/requests/:id/comments
func (h *CommentHandler) Add(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.AddCommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}
	comment, err := h.comments.Add(c.Request.Context(), actor, requestID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, comment)
}

// GET /api/requests/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	list, err := h.comments.ListForRequest(c.Request.Context(), actor, requestID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"comments": list})
}
