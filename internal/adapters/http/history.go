package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/domain"
)

type historyHandlers struct {
	history *app.History
	loc     *time.Location
}

// messageView is the presentation of a stored message. Stored timestamps stay
// UTC; LocalTime is the only place the display zone is applied.
type messageView struct {
	ID        domain.MessageID `json:"id"`
	Sender    string           `json:"sender"`
	Receiver  string           `json:"receiver"`
	Content   string           `json:"content"`
	AudioURL  string           `json:"audio_url,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	LocalTime string           `json:"local_time"`
}

type contactView struct {
	User        *domain.User `json:"user"`
	LastMessage *messageView `json:"last_message"`
}

func (h *historyHandlers) view(m domain.Message) messageView {
	return messageView{
		ID:        m.ID,
		Sender:    m.Sender,
		Receiver:  m.Receiver,
		Content:   m.Content,
		AudioURL:  m.AudioURL,
		Timestamp: m.Timestamp,
		LocalTime: m.Timestamp.In(h.loc).Format(time.RFC3339),
	}
}

func (h *historyHandlers) conversation(c *gin.Context) {
	viewer := viewerFrom(c)
	room := c.Param("room")
	search := c.Query("search")

	msgs, err := h.history.Conversation(c.Request.Context(), viewer, room, search)
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_name":    room,
		"search_query": search,
		"chats":        lo.Map(msgs, func(m domain.Message, _ int) messageView { return h.view(m) }),
	})
}

func (h *historyHandlers) contacts(c *gin.Context) {
	summaries, err := h.history.RecentContacts(c.Request.Context(), viewerFrom(c))
	if err != nil {
		writeLookupError(c, err)
		return
	}
	out := lo.Map(summaries, func(s app.ContactSummary, _ int) contactView {
		v := contactView{User: s.User}
		if s.LastMessage != nil {
			mv := h.view(*s.LastMessage)
			v.LastMessage = &mv
		}
		return v
	})
	c.JSON(http.StatusOK, gin.H{"user_last_messages": out})
}
