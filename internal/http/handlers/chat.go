package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novamark/agencydesk-backend/internal/domain"
	"github.com/novamark/agencydesk-backend/internal/http/response"
	"github.com/novamark/agencydesk-backend/internal/pkg/ctxutil"
	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
	"github.com/novamark/agencydesk-backend/internal/services"
)

// ChatHandler is the client-facing surface: the support widget and the
// project-scoped thread. Both resolve the caller's active conversation and
// send with the client sender class.
type ChatHandler struct {
	conversations services.ConversationService
	messages      services.MessageService
	directory     services.DirectoryService
}

func NewChatHandler(
	conversations services.ConversationService,
	messages services.MessageService,
	directory services.DirectoryService,
) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		messages:      messages,
		directory:     directory,
	}
}

// POST /api/chat/widget
func (h *ChatHandler) OpenWidget(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	h.openThread(c, rd, "")
}

// GET /api/projects/:id/thread
func (h *ChatHandler) OpenProjectThread(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	projectID := c.Param("id")

	project, err := h.directory.GetProject(c.Request.Context(), projectID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if project == nil || project.ClientID != rd.UserID.String() {
		response.RespondErr(c, apierr.NotFound("project %s not found", projectID))
		return
	}
	h.openThread(c, rd, projectID)
}

func (h *ChatHandler) openThread(c *gin.Context, rd *ctxutil.RequestData, projectID string) {
	ctx := c.Request.Context()
	conv, err := h.conversations.FindOrCreateActive(ctx, rd.UserID.String(), projectID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	msgs, err := h.messages.List(ctx, conv.ID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"conversation": conv,
		"messages":     msgs,
		"unread":       services.UnreadCount(msgs, domain.SenderClient),
	})
}

type sendMessageReq struct {
	Text        string              `json:"text"`
	Attachments []domain.Attachment `json:"attachments"`
}

// POST /api/chat/conversations/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	conv, ok := h.authorizeConversation(c, rd, c.Param("id"))
	if !ok {
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), services.SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       rd.UserID.String(),
		SenderName:     rd.DisplayName,
		SenderType:     senderClass(rd),
		Text:           req.Text,
		Attachments:    req.Attachments,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}

// GET /api/chat/conversations/:id/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	conv, ok := h.authorizeConversation(c, rd, c.Param("id"))
	if !ok {
		return
	}
	msgs, err := h.messages.List(c.Request.Context(), conv.ID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"messages": msgs,
		"unread":   services.UnreadCount(msgs, senderClass(rd)),
	})
}

// POST /api/chat/conversations/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	conv, ok := h.authorizeConversation(c, rd, c.Param("id"))
	if !ok {
		return
	}
	if err := h.messages.MarkThreadRead(c.Request.Context(), conv.ID, senderClass(rd)); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/chat/unread
func (h *ChatHandler) UnreadSummary(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	ctx := c.Request.Context()

	convs, err := h.conversations.ListForClient(ctx, rd.UserID.String())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	total := 0
	perConversation := make(map[string]int, len(convs))
	for _, conv := range convs {
		msgs, err := h.messages.List(ctx, conv.ID)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		n := services.UnreadCount(msgs, domain.SenderClient)
		perConversation[conv.ID] = n
		total += n
	}
	response.RespondOK(c, gin.H{"total": total, "conversations": perConversation})
}

// authorizeConversation loads the conversation and enforces that clients only
// touch their own threads. Admins pass through.
func (h *ChatHandler) authorizeConversation(c *gin.Context, rd *ctxutil.RequestData, id string) (*domain.Conversation, bool) {
	conv, err := h.conversations.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return nil, false
	}
	if conv == nil {
		response.RespondErr(c, apierr.NotFound("conversation %s not found", id))
		return nil, false
	}
	if rd.Role != ctxutil.RoleAdmin && conv.ClientID != rd.UserID.String() {
		response.RespondErr(c, apierr.Forbidden("conversation %s belongs to another client", id))
		return nil, false
	}
	return conv, true
}

func senderClass(rd *ctxutil.RequestData) string {
	if rd.Role == ctxutil.RoleAdmin {
		return domain.SenderAdmin
	}
	return domain.SenderClient
}
