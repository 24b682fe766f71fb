package ws

import (
	"encoding/json"

	"github.com/vanishchat/vanish/internal/domain"
	"github.com/vanishchat/vanish/internal/presence"
	"go.uber.org/zap"
)

// HubNotifier implements service.Notifier and expiry.Notifier using the
// WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// NotifyNewMessage fans a persisted message out to live connections:
// message:receive to the recipient, message:sent back to the originating
// connection (or every sender connection for the HTTP fallback), and
// message:new to conversation subscribers. All best-effort; an offline
// recipient picks the message up on the next history fetch.
func (n *HubNotifier) NotifyNewMessage(msg *domain.Message, origin presence.Conn) {
	if data, ok := n.marshal(EventTypeMessageReceive, msg); ok {
		n.hub.SendToUser(msg.ReceiverID, data)
	}

	if data, ok := n.marshal(EventTypeMessageSent, msg); ok {
		if origin != nil {
			origin.Send(data)
		} else {
			n.hub.SendToUser(msg.SenderID, data)
		}
	}

	evt, err := NewEvent(EventTypeMessageNew, &msg.ConversationID, MessagePayload{Message: *msg})
	if err != nil {
		n.hub.log.Error("ws notifier: marshal error", zap.Error(err))
		return
	}
	n.hub.BroadcastToConversation(msg.ConversationID, evt, nil)
}

// NotifyMessageRemoved pages both participants' live connections when a
// message's timer fires. Users without connections are not paged; the
// message is simply gone on their next fetch.
func (n *HubNotifier) NotifyMessageRemoved(msg *domain.Message) {
	evt, err := NewEvent(EventTypeMessageRemoved, &msg.ConversationID, MessageRemovedPayload{MessageID: msg.ID})
	if err != nil {
		n.hub.log.Error("ws notifier: marshal error", zap.Error(err))
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		n.hub.log.Error("ws notifier: marshal error", zap.Error(err))
		return
	}

	n.hub.SendToUser(msg.SenderID, data)
	n.hub.SendToUser(msg.ReceiverID, data)
}

func (n *HubNotifier) marshal(eventType string, msg *domain.Message) ([]byte, bool) {
	evt, err := NewEvent(eventType, &msg.ConversationID, MessagePayload{Message: *msg})
	if err != nil {
		n.hub.log.Error("ws notifier: marshal error", zap.Error(err))
		return nil, false
	}
	data, err := json.Marshal(evt)
	if err != nil {
		n.hub.log.Error("ws notifier: marshal error", zap.Error(err))
		return nil, false
	}
	return data, true
}
