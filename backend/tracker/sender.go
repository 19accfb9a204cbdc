package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"philosofium/backend/utils"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

// Sample is one batch of active seconds for a resource.
type Sample struct {
	ResourceID   string    `json:"resourceId"`
	ResourceType string    `json:"resourceType"`
	Seconds      int       `json:"seconds"`
	Timestamp    time.Time `json:"timestamp"`
}

// Sender delivers samples to the ingestion endpoints.
// Beacon must not block and has no way to report failure.
type Sender interface {
	Sync(ctx context.Context, s Sample) error
	Beacon(s Sample)
}

// HTTPSender posts samples with fiber's client.
type HTTPSender struct {
	baseURL string
	token   string
	timeout time.Duration
	log     *utils.Logger
}

func NewHTTPSender(baseURL, token string, log *utils.Logger) *HTTPSender {
	if log == nil {
		log = utils.NopLogger()
	}
	return &HTTPSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimPrefix(token, "Bearer "),
		timeout: 5 * time.Second,
		log:     log.With("component", "tracker-sender"),
	}
}

func (s *HTTPSender) Sync(ctx context.Context, sample Sample) error {
	body, err := sonic.Marshal(sample)
	if err != nil {
		return err
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	agent := fiber.Post(s.baseURL + "/analytics/sync")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.Body(body)
	agent.Timeout(timeout)

	code, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("sync engagement: %w", errs[0])
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("sync engagement: status %d: %s", code, resp)
	}
	return nil
}

type beaconPayload struct {
	Sample
	Token string `json:"token"`
}

// Beacon sends from a detached goroutine with the credential in the body,
// the way a page-unload beacon has to. It is never retried.
func (s *HTTPSender) Beacon(sample Sample) {
	body, err := sonic.Marshal(beaconPayload{Sample: sample, Token: s.token})
	if err != nil {
		s.log.Debug("beacon encode failed", "err", err)
		return
	}

	go func() {
		agent := fiber.Post(s.baseURL + "/analytics/beacon")
		agent.ContentType("text/plain;charset=UTF-8")
		agent.Body(body)
		agent.Timeout(s.timeout)
		if code, _, errs := agent.Bytes(); len(errs) > 0 || code != fiber.StatusOK {
			s.log.Debug("beacon not delivered", "status", code, "errs", errs)
		}
	}()
}
