package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/Joseda-hg/lazyday/internal/model"
)

// WebPush sends notifications through the subscriber's push service using
// VAPID authentication.
type WebPush struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        int
	HTTPClient *http.Client
}

// GenerateKeys returns a fresh VAPID key pair (private, public).
func GenerateKeys() (string, string, error) {
	return webpush.GenerateVAPIDKeys()
}

func (w *WebPush) Send(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	if w.PublicKey == "" || w.PrivateKey == "" {
		return fmt.Errorf("vapid keys are not configured")
	}

	options := &webpush.Options{
		Subscriber:      w.Subject,
		VAPIDPublicKey:  w.PublicKey,
		VAPIDPrivateKey: w.PrivateKey,
		TTL:             w.TTL,
	}
	if w.HTTPClient != nil {
		options.HTTPClient = w.HTTPClient
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, options)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}
