package push

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/courier/pkg/logger"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// FCMClient sends push notifications through the Firebase Cloud Messaging HTTP v1 API.
// FCM v1 accepts one token per request, so multicasts fan out with bounded concurrency.
type FCMClient struct {
	httpClient  *http.Client
	endpoint    string
	projectID   string
	concurrency int
	logger      *slog.Logger
}

// FCMOption configures an FCMClient.
type FCMOption func(*FCMClient)

// WithEndpoint overrides the FCM base URL.
func WithEndpoint(endpoint string) FCMOption {
	return func(c *FCMClient) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithConcurrency limits the number of in-flight per-token requests.
func WithConcurrency(n int) FCMOption {
	return func(c *FCMClient) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithFCMLogger sets the logger for the client.
func WithFCMLogger(logger *slog.Logger) FCMOption {
	return func(c *FCMClient) {
		c.logger = logger
	}
}

// NewFCMClient creates a client for projectID over an already authorized HTTP client.
func NewFCMClient(projectID string, httpClient *http.Client, opts ...FCMOption) (*FCMClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidConfig)
	}
	if httpClient == nil {
		return nil, fmt.Errorf("%w: http client is required", ErrInvalidConfig)
	}

	c := &FCMClient{
		httpClient:  httpClient,
		endpoint:    "https://fcm.googleapis.com",
		projectID:   projectID,
		concurrency: 8,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFCMClientFromConfig loads service account credentials and builds an OAuth2-authorized client.
func NewFCMClientFromConfig(ctx context.Context, cfg Config, opts ...FCMOption) (*FCMClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: credentials are required", ErrInvalidConfig)
	}

	data := []byte(cfg.CredentialsJSON)
	if cfg.CredentialsFile != "" {
		var err error
		data, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, data, fcmScope)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}

	httpClient := oauth2.NewClient(ctx, creds.TokenSource)
	httpClient.Timeout = cfg.RequestTimeout

	opts = append([]FCMOption{WithEndpoint(cfg.Endpoint), WithConcurrency(cfg.Concurrency)}, opts...)
	return NewFCMClient(projectID, httpClient, opts...)
}

// SendMulticast implements Gateway.
// The returned error is ErrGatewayUnavailable when no token accepted the message
// and at least one failed for transport reasons; the response is still returned
// so callers can act on invalid tokens.
func (c *FCMClient) SendMulticast(ctx context.Context, msg Message) (*BatchResponse, error) {
	if len(msg.Tokens) == 0 {
		return nil, ErrNoTokens
	}

	results := make([]SendResult, len(msg.Tokens))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, token := range msg.Tokens {
		g.Go(func() error {
			id, err := c.send(ctx, token, msg)
			results[i] = SendResult{Token: token, MessageID: id, Error: err}
			return nil
		})
	}
	_ = g.Wait()

	resp := newBatchResponse(results)
	if resp.SuccessCount > 0 {
		return resp, nil
	}

	var transient []error
	for _, r := range results {
		if !errors.Is(r.Error, ErrInvalidToken) {
			transient = append(transient, r.Error)
		}
	}
	if len(transient) > 0 {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "fcm multicast failed for every token",
			slog.Int("tokens", len(msg.Tokens)),
			logger.Errors(transient...),
		)
		return resp, errors.Join(append([]error{ErrGatewayUnavailable}, transient...)...)
	}

	return resp, nil
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
	APNS         *fcmAPNS          `json:"apns,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

type fcmAndroid struct {
	Notification struct {
		Sound string `json:"sound"`
	} `json:"notification"`
}

type fcmAPNS struct {
	Payload struct {
		APS struct {
			Sound string `json:"sound"`
		} `json:"aps"`
	} `json:"payload"`
}

type fcmResponse struct {
	Name string `json:"name"`
}

type fcmErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func buildFCMRequest(token string, msg Message) fcmRequest {
	req := fcmRequest{Message: fcmMessage{
		Token:        token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}}
	if msg.Sound {
		req.Message.Android = &fcmAndroid{}
		req.Message.Android.Notification.Sound = "default"
		req.Message.APNS = &fcmAPNS{}
		req.Message.APNS.Payload.APS.Sound = "default"
	}
	return req
}

func (c *FCMClient) send(ctx context.Context, token string, msg Message) (string, error) {
	body, err := json.Marshal(buildFCMRequest(token, msg))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.endpoint, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Join(ErrGatewayUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Join(ErrGatewayUnavailable, err)
	}

	if resp.StatusCode == http.StatusOK {
		var out fcmResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", errors.Join(ErrUnexpectedReply, err)
		}
		c.logger.LogAttrs(ctx, slog.LevelDebug, "fcm message sent",
			slog.String("message_id", out.Name),
			logger.Duration(time.Since(start)),
		)
		return out.Name, nil
	}

	return "", classifyFCMError(resp.StatusCode, raw)
}

// classifyFCMError maps an FCM error reply to ErrInvalidToken or a transient error.
func classifyFCMError(status int, raw []byte) error {
	var e fcmErrorResponse
	_ = json.Unmarshal(raw, &e)

	code := e.Error.Status
	for _, d := range e.Error.Details {
		if d.ErrorCode != "" {
			code = d.ErrorCode
			break
		}
	}
	detail := fmt.Errorf("fcm: status %d %s: %s", status, code, e.Error.Message)

	switch {
	case status == http.StatusNotFound, code == "UNREGISTERED":
		return errors.Join(ErrInvalidToken, detail)
	case code == "INVALID_ARGUMENT", code == "SENDER_ID_MISMATCH":
		return errors.Join(ErrInvalidToken, detail)
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return errors.Join(ErrGatewayUnavailable, detail)
	default:
		return detail
	}
}

var _ Gateway = (*FCMClient)(nil)
