package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthmate/healthmate/chat"
	"github.com/healthmate/healthmate/progress"
	"github.com/healthmate/healthmate/utils"
	"github.com/healthmate/healthmate/vitals"
)

const maxChatMessage = 1000

// ChatController answers health questions using the caller's latest reading.
type ChatController struct {
	svc *progress.Service
}

// NewChatController creates a new ChatController instance.
func NewChatController(svc *progress.Service) *ChatController {
	return &ChatController{svc: svc}
}

// Ask replies to one message.
func (c *ChatController) Ask(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}
	msg := utils.SanitizeText(req.Message)
	if len([]rune(msg)) > maxChatMessage {
		utils.Error(ctx, http.StatusBadRequest, 40051, "message is too long")
		return
	}

	p, err := c.svc.Progress(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err)
		return
	}
	var latest *vitals.Reading
	if r, ok := p.Latest(); ok {
		latest = &r
	}
	utils.Success(ctx, chat.Answer(msg, latest))
}
