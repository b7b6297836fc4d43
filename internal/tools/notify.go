package tools

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Notification is a recorded delivery made by t_send_notification.
type Notification struct {
	Channel string
	Message string
	SentAt  time.Time
}

// Notifier records outbound notifications. Delivery is a side effect,
// so the tool it backs is registered as non-idempotent.
type Notifier struct {
	mu   sync.Mutex
	sent []Notification
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Send records a notification and returns a delivery receipt.
func (n *Notifier) Send(channel, message string) Notification {
	note := Notification{Channel: channel, Message: message, SentAt: time.Now()}
	n.mu.Lock()
	n.sent = append(n.sent, note)
	n.mu.Unlock()
	return note
}

// Sent returns a copy of all recorded notifications.
func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// RegisterNotify adds the notification tool. The tool is not idempotent;
// a failed send is never retried and a fallback plan is used instead.
func RegisterNotify(r *Registry, n *Notifier) {
	r.MustRegister(&Tool{
		Name:        "t_send_notification",
		Description: "Send a message to a notification channel",
		Category:    CategoryNotify,
		Schema: Schema{
			Required: []string{"message"},
			Properties: map[string]Property{
				"message": {Type: "string", Description: "message body"},
				"channel": {Type: "string", Description: "target channel, defaults to 'default'"},
			},
		},
		Idempotent: false,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			msg, err := stringArg(args, "message")
			if err != nil {
				return "", err
			}
			channel := "default"
			if raw, ok := args["channel"]; ok {
				channel = fmt.Sprintf("%v", raw)
			}
			note := n.Send(channel, msg)
			return fmt.Sprintf("sent to %s at %s", note.Channel, note.SentAt.Format(time.RFC3339)), nil
		},
	})
}
