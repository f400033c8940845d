// Package moderation talks to an OpenAI-compatible moderation API.
//
// Text checks fail open: when the API cannot be reached the text is allowed
// and the failure is returned alongside so callers can log it. Image checks
// fail closed: any error rejects the upload with a dependency error.
package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/cookerz-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

const (
	responseBodyReadLimit int64 = 1024

	// MessageVerifyFailed is shown when an image could not be classified.
	MessageVerifyFailed = "could not verify content, try again"
)

var errAPIKeyRequired = errors.New("moderation api key is required")

const imagePrompt = `You review photos uploaded to a home-cooked food marketplace.
Answer with a JSON object {"is_food": boolean, "is_nsfw": boolean}.
is_food is true only when the photo mainly shows prepared food or a dish.
is_nsfw is true for nudity, gore or otherwise unsafe content.`

// TextVerdict is the outcome of a text check.
type TextVerdict struct {
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories,omitempty"`
}

// ImageVerdict is the outcome of an image classification.
type ImageVerdict struct {
	IsFood bool `json:"is_food"`
	IsNSFW bool `json:"is_nsfw"`
}

// Acceptable reports whether the image may be published as a dish photo.
func (v ImageVerdict) Acceptable() bool {
	return v.IsFood && !v.IsNSFW
}

// TextModerator checks free text such as review comments.
type TextModerator interface {
	CheckText(ctx context.Context, text string) (TextVerdict, error)
}

// ImageClassifier classifies uploaded photos.
type ImageClassifier interface {
	ClassifyImage(ctx context.Context, contentType string, image []byte) (ImageVerdict, error)
}

// Client calls /v1/moderations and /v1/chat/completions.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the moderation client from configuration.
func NewClient(cfg config.ModerationConfig, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     key,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.baseURL == "" {
		client.baseURL = "https://api.openai.com"
	}
	return client, nil
}

// CheckText never blocks content on API failure: the verdict is "not flagged"
// and the dependency error is returned for logging.
func (c *Client) CheckText(ctx context.Context, text string) (TextVerdict, error) {
	if strings.TrimSpace(text) == "" {
		return TextVerdict{}, nil
	}
	if c == nil {
		return TextVerdict{}, pkgerrors.New(pkgerrors.CodeDependency, "moderation client not configured")
	}

	var apiResp struct {
		Results []struct {
			Flagged    bool            `json:"flagged"`
			Categories map[string]bool `json:"categories"`
		} `json:"results"`
	}
	body := map[string]any{"input": text}
	if c.textModel != "" {
		body["model"] = c.textModel
	}
	if err := c.post(ctx, "/v1/moderations", body, &apiResp); err != nil {
		return TextVerdict{}, err
	}

	verdict := TextVerdict{}
	for _, result := range apiResp.Results {
		if !result.Flagged {
			continue
		}
		verdict.Flagged = true
		for name, hit := range result.Categories {
			if hit {
				verdict.Categories = append(verdict.Categories, name)
			}
		}
	}
	return verdict, nil
}

// ClassifyImage asks a vision model whether the image shows food and whether it is unsafe.
func (c *Client) ClassifyImage(ctx context.Context, contentType string, image []byte) (ImageVerdict, error) {
	if c == nil {
		return ImageVerdict{}, pkgerrors.New(pkgerrors.CodeDependency, MessageVerifyFailed)
	}
	if len(image) == 0 {
		return ImageVerdict{}, pkgerrors.New(pkgerrors.CodeValidation, "image is empty")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))
	body := map[string]any{
		"model":           c.imageModel,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": imagePrompt},
			{"role": "user", "content": []map[string]any{
				{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
			}},
		},
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/v1/chat/completions", body, &apiResp); err != nil {
		return ImageVerdict{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, MessageVerifyFailed)
	}
	if len(apiResp.Choices) == 0 {
		return ImageVerdict{}, pkgerrors.New(pkgerrors.CodeDependency, MessageVerifyFailed)
	}

	var raw struct {
		IsFood *bool `json:"is_food"`
		IsNSFW *bool `json:"is_nsfw"`
	}
	content := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &raw); err != nil || raw.IsFood == nil || raw.IsNSFW == nil {
		return ImageVerdict{}, pkgerrors.New(pkgerrors.CodeDependency, MessageVerifyFailed)
	}
	return ImageVerdict{IsFood: *raw.IsFood, IsNSFW: *raw.IsNSFW}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal moderation request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build moderation request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute moderation request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "moderation request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode moderation response")
	}
	return nil
}
