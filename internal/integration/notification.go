package integration

import (
	"context"
	"net/http"
)

// Notification is a templated email/SMS send.
type Notification struct {
	Slug       string                 `json:"slug"`
	EnquiryID  string                 `json:"enquiry_id,omitempty"`
	Recipients []string               `json:"recipients"`
	Params     map[string]interface{} `json:"params"`
	Channel    string                 `json:"channel,omitempty"`
}

// NotificationClient sends notifications.
type NotificationClient struct {
	client *Client
}

// NewNotificationClient wraps a collaborator client.
func NewNotificationClient(client *Client) *NotificationClient {
	return &NotificationClient{client: client}
}

// Send delivers one notification.
func (n *NotificationClient) Send(ctx context.Context, notification Notification) error {
	_, err := n.client.Send(ctx, http.MethodPost, "/notifications/send", notification, nil)
	return err
}
