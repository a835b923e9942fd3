package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/novamark/agencydesk-backend/internal/domain"
	"github.com/novamark/agencydesk-backend/internal/http/response"
	"github.com/novamark/agencydesk-backend/internal/pkg/ctxutil"
	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
	"github.com/novamark/agencydesk-backend/internal/platform/logger"
	"github.com/novamark/agencydesk-backend/internal/realtime"
	"github.com/novamark/agencydesk-backend/internal/services"
	"github.com/novamark/agencydesk-backend/internal/sse"
)

// RealtimeHandler bridges live store subscriptions onto browser SSE streams.
type RealtimeHandler struct {
	log           *logger.Logger
	hub           *sse.Hub
	conversations services.ConversationService
	messages      services.MessageService
}

func NewRealtimeHandler(
	log *logger.Logger,
	hub *sse.Hub,
	conversations services.ConversationService,
	messages services.MessageService,
) *RealtimeHandler {
	return &RealtimeHandler{
		log:           log.With("handler", "RealtimeHandler"),
		hub:           hub,
		conversations: conversations,
		messages:      messages,
	}
}

// GET /api/events streams user-level notifications (conversation lifecycle,
// new messages, read receipts). Admins additionally receive the inbox channel.
func (h *RealtimeHandler) Events(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())

	client := h.hub.NewClient(rd.UserID)
	h.hub.AddChannel(client, realtime.UserChannel(rd.UserID.String()))
	if rd.Role == ctxutil.RoleAdmin {
		h.hub.AddChannel(client, realtime.AdminChannel)
	}
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

// GET /api/admin/inbox/stream pushes the full recency-ordered
// conversation list to the admin inbox on every change.
func (h *RealtimeHandler) InboxStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())

	client := h.hub.NewClient(rd.UserID)
	h.hub.AddChannel(client, realtime.AdminChannel)
	defer h.hub.CloseClient(client)

	unsub := h.conversations.SubscribeAll(func(convs []*domain.Conversation) {
		client.Send(realtime.SSEMessage{
			Channel: realtime.AdminChannel,
			Event:   realtime.SSEEventConversationsSnapshot,
			Data:    gin.H{"conversations": convs},
		})
	})
	defer unsub()

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

// GET /api/chat/conversations/:id/stream is the live view of one
// conversation: the full ordered message set on every change, plus the
// conversation record itself. Both ride store subscriptions, so two tabs on
// the same thread see the same sequence of snapshots with no optimistic
// special case.
func (h *RealtimeHandler) ConversationStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	convID := c.Param("id")

	conv, err := h.conversations.Get(c.Request.Context(), convID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if conv == nil {
		response.RespondErr(c, apierr.NotFound("conversation %s not found", convID))
		return
	}
	if rd.Role != ctxutil.RoleAdmin && conv.ClientID != rd.UserID.String() {
		response.RespondErr(c, apierr.Forbidden("conversation %s belongs to another client", convID))
		return
	}

	client := h.hub.NewClient(rd.UserID)
	channel := realtime.ConversationChannel(convID)
	h.hub.AddChannel(client, channel)
	defer h.hub.CloseClient(client)

	unsubMsgs := h.messages.Subscribe(convID, func(msgs []*domain.Message) {
		client.Send(realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventMessagesSnapshot,
			Data:    gin.H{"conversation_id": convID, "messages": msgs},
		})
	})
	defer unsubMsgs()

	unsubConv := h.conversations.SubscribeOne(convID, func(conv *domain.Conversation) {
		client.Send(realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventConversationUpdated,
			Data:    gin.H{"conversation": conv},
		})
	})
	defer unsubConv()

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
