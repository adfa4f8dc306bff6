package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/nilm-chat/internal/nilm/biz"
	"github.com/kart-io/nilm-chat/pkg/utils/response"
)

// ChatHandler serves the conversation endpoints.
type ChatHandler struct {
	svc *biz.ConversationService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *biz.ConversationService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// ChatRequest is the request body of POST /chat.
type ChatRequest struct {
	// Message is checked for blank and length by the service, which knows
	// the configured limit.
	Message string `json:"message"`
	// SessionID continues an existing conversation (optional)
	SessionID string `json:"session_id" binding:"omitempty,sessionid"`
}

// Chat answers one user message.
//
//	@Summary	Chat with the energy assistant
//	@Tags		chat
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ChatRequest	true	"message"
//	@Success	200		{object}	biz.ChatReply
//	@Router		/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := bindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}

	reply, err := h.svc.Chat(c.Request.Context(), req.Message, req.SessionID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, reply)
}

// History returns the messages of one session in chronological order.
//
//	@Summary	Get chat history
//	@Tags		chat
//	@Produce	json
//	@Param		session_id	path	string	true	"session id"
//	@Router		/chat/history/{session_id} [get]
func (h *ChatHandler) History(c *gin.Context) {
	msgs, err := h.svc.History(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, msgs)
}

// DeleteSession removes a session and its messages.
//
//	@Summary	Delete a chat session
//	@Tags		chat
//	@Param		session_id	path	string	true	"session id"
//	@Router		/chat/sessions/{session_id} [delete]
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.svc.DeleteSession(c.Request.Context(), sessionID); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"session_id": sessionID, "deleted": true})
}
