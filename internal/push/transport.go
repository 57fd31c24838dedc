package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Joseda-hg/lazyday/internal/model"
)

// Transport delivers one encoded payload to one subscription.
type Transport interface {
	Send(ctx context.Context, sub model.PushSubscription, payload []byte) error
}

// StatusError is returned when the push service answers with an HTTP error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("push service returned %d: %s", e.StatusCode, e.Body)
}

// IsGone reports whether err means the endpoint will never accept
// deliveries again. Both 404 and 410 count.
func IsGone(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusGone || statusErr.StatusCode == http.StatusNotFound
}
