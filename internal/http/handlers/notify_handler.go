// README: Push notification handlers; devices fetch the FCM topic to subscribe to.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpmiddleware "trailtrack/internal/http/middleware"
	"trailtrack/internal/types"
)

// TopicResolver is implemented by notify.FCMNotifier.
type TopicResolver interface {
	Topic(owner types.ID) string
}

type NotifyHandler struct {
	topics TopicResolver
}

func NewNotifyHandler(topics TopicResolver) *NotifyHandler {
	return &NotifyHandler{topics: topics}
}

func (h *NotifyHandler) Topic(c *gin.Context) {
	writeJSON(c, http.StatusOK, map[string]string{
		"topic": h.topics.Topic(types.ID(httpmiddleware.CallerUID(c))),
	})
}
