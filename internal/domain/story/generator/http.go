package generator

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"storyloom/internal/domain/story"
)

// ErrEmptyStory is returned when the backend answers without story text.
var ErrEmptyStory = errors.New("story backend returned no story")

const generatePath = "/generate-story"

// HTTPGenerator asks a story backend to write a story for a prompt.
type HTTPGenerator struct {
	client *resty.Client
}

type generateResponse struct {
	Story string `json:"story"`
	Title string `json:"title,omitempty"`
}

// NewHTTPGenerator creates a generator posting to baseURL + /generate-story.
func NewHTTPGenerator(baseURL string, timeout time.Duration) *HTTPGenerator {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second)

	client.AddRetryCondition(retryCondition)

	return &HTTPGenerator{client: client}
}

// retryCondition retries network failures, throttling and server errors
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == 429 || code == 408
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt story.Prompt) (*story.Item, error) {
	prompt, err := prompt.Validate()
	if err != nil {
		return nil, err
	}

	var out generateResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(prompt).
		SetResult(&out).
		Post(generatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to generate story: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("story backend returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if strings.TrimSpace(out.Story) == "" {
		return nil, ErrEmptyStory
	}

	logrus.WithFields(logrus.Fields{
		"status": resp.StatusCode(),
		"chars":  len(out.Story),
		"took":   resp.Time(),
	}).Debug("story generated")

	sum := sha1.Sum([]byte(prompt.Text))
	title := out.Title
	if title == "" {
		title = "Your Story"
	}
	return &story.Item{
		ID:          fmt.Sprintf("generated-%x", sum[:4]),
		Title:       title,
		Author:      "Story backend",
		Content:     out.Story,
		Description: prompt.Text,
	}, nil
}
