package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"trailtrack/internal/types"
)

// MessageSender is the part of *messaging.Client used here.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier pushes notifications to the owner's devices. Each device asks
// the API for its topic and subscribes to it on sign-in.
type FCMNotifier struct {
	client   MessageSender
	topicKey []byte
	log      *zap.Logger
}

func NewFCMNotifier(client MessageSender, topicKey string, log *zap.Logger) (*FCMNotifier, error) {
	if topicKey == "" {
		return nil, errors.New("notify: topic key is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FCMNotifier{client: client, topicKey: []byte(topicKey), log: log}, nil
}

// Topic is "user-" plus the hex HMAC-SHA256 of the uid. The result only uses
// characters FCM accepts in topic names and cannot be derived without the key.
func (n *FCMNotifier) Topic(owner types.ID) string {
	mac := hmac.New(sha256.New, n.topicKey)
	mac.Write([]byte(owner))
	return "user-" + hex.EncodeToString(mac.Sum(nil))
}

func (n *FCMNotifier) Notify(ctx context.Context, owner types.ID, msg Notification) error {
	if owner == "" {
		return fmt.Errorf("notify: empty owner for %s", msg.Kind)
	}
	m := buildMessage(n.Topic(owner), msg)
	messageID, err := n.client.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("sending FCM to topic %s: %w", m.Topic, err)
	}
	n.log.Debug("FCM sent", zap.String("kind", string(msg.Kind)), zap.String("message_id", messageID))
	return nil
}

func buildMessage(topic string, msg Notification) *messaging.Message {
	data := map[string]string{"type": string(msg.Kind)}
	for k, v := range msg.Data {
		data[k] = v
	}
	return &messaging.Message{
		Topic: topic,
		Data:  data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
}
