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

// InboxHandler is the admin surface: every conversation in one inbox,
// replies with the admin sender class, read tracking from the admin's
// perspective.
type InboxHandler struct {
	conversations services.ConversationService
	messages      services.MessageService
	directory     services.DirectoryService
}

func NewInboxHandler(
	conversations services.ConversationService,
	messages services.MessageService,
	directory services.DirectoryService,
) *InboxHandler {
	return &InboxHandler{
		conversations: conversations,
		messages:      messages,
		directory:     directory,
	}
}

// GET /api/admin/conversations
func (h *InboxHandler) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	convs, err := h.conversations.ListAll(ctx)
	if err != nil {
		response.RespondErr(c, err)
		return
	}

	type inboxEntry struct {
		Conversation *domain.Conversation `json:"conversation"`
		Client       *domain.Client       `json:"client,omitempty"`
		Unread       int                  `json:"unread"`
	}
	entries := make([]inboxEntry, 0, len(convs))
	for _, conv := range convs {
		msgs, err := h.messages.List(ctx, conv.ID)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		client, err := h.directory.GetClient(ctx, conv.ClientID)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		entries = append(entries, inboxEntry{
			Conversation: conv,
			Client:       client,
			Unread:       services.UnreadCount(msgs, domain.SenderAdmin),
		})
	}
	response.RespondOK(c, gin.H{"conversations": entries})
}

// GET /api/admin/conversations/:id
func (h *InboxHandler) GetThread(c *gin.Context) {
	ctx := c.Request.Context()
	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if conv == nil {
		response.RespondErr(c, apierr.NotFound("conversation %s not found", c.Param("id")))
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
		"unread":       services.UnreadCount(msgs, domain.SenderAdmin),
	})
}

type replyReq struct {
	Text        string              `json:"text"`
	Attachments []domain.Attachment `json:"attachments"`
}

// POST /api/admin/conversations/:id/reply
func (h *InboxHandler) Reply(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())

	var req replyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), services.SendMessageInput{
		ConversationID: c.Param("id"),
		SenderID:       rd.UserID.String(),
		SenderName:     rd.DisplayName,
		SenderType:     domain.SenderAdmin,
		Text:           req.Text,
		Attachments:    req.Attachments,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}

// POST /api/admin/conversations/:id/read
func (h *InboxHandler) MarkRead(c *gin.Context) {
	if err := h.messages.MarkThreadRead(c.Request.Context(), c.Param("id"), domain.SenderAdmin); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/admin/conversations/:id/close
func (h *InboxHandler) CloseConversation(c *gin.Context) {
	if err := h.conversations.Close(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
