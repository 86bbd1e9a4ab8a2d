package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/humrah/backend/internal/config"
)

// FCMClient delivers pushes over the FCM legacy HTTP API in one batched
// request per user.
type FCMClient struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

func NewFCMClient(cfg config.Push) *FCMClient {
	return &FCMClient{
		endpoint:  cfg.Endpoint,
		serverKey: cfg.ServerKey,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

type fcmRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    fcmNotification   `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

// deadTokenErrors are the FCM result errors meaning the token is permanently
// unusable and must be pruned.
var deadTokenErrors = map[string]struct{}{
	"NotRegistered":       {},
	"InvalidRegistration": {},
	"MismatchSenderId":    {},
}

func (c *FCMClient) SendToTokens(ctx context.Context, tokens []string, msg Message) (*Result, error) {
	if len(tokens) == 0 {
		return &Result{}, nil
	}

	payload, err := json.Marshal(fcmRequest{
		RegistrationIDs: tokens,
		Notification:    fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:            msg.Data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal fcm request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build fcm request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("key=%s", c.serverKey))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send fcm request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fcm: status %d", resp.StatusCode)
	}

	var body fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode fcm response")
	}

	res := &Result{SuccessCount: body.Success}
	for i, r := range body.Results {
		if i >= len(tokens) {
			break
		}
		if _, dead := deadTokenErrors[r.Error]; dead {
			res.FailedTokens = append(res.FailedTokens, tokens[i])
		}
	}

	return res, nil
}
