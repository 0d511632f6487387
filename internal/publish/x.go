package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"rss2x/internal/config"
)

const (
	xAPIBaseURL     = "https://api.twitter.com"
	xMediaUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

	xClientTimeout = 30 * time.Second
	// X rejects images above 5 MB anyway.
	maxImageBytes = 5 << 20
)

// XPublisher posts statuses through the X API v2, signing requests with the
// account's OAuth1 token set.
type XPublisher struct {
	client         *http.Client
	downloadClient *http.Client
	apiBaseURL     string
	mediaUploadURL string
	log            *slog.Logger
}

func NewXPublisher(creds config.Credentials, log *slog.Logger) *XPublisher {
	oauthConfig := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	client := oauthConfig.Client(oauth1.NoContext, token)
	client.Timeout = xClientTimeout

	return &XPublisher{
		client:         client,
		downloadClient: &http.Client{Timeout: xClientTimeout},
		apiBaseURL:     xAPIBaseURL,
		mediaUploadURL: xMediaUploadURL,
		log:            log,
	}
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

func (p *XPublisher) Publish(ctx context.Context, post Post) error {
	req := tweetRequest{Text: StatusText(post)}

	if post.ImageURL != "" {
		mediaID, err := p.uploadImage(ctx, post.ImageURL)
		if err != nil {
			// A broken preview image must not cost us the entry.
			p.log.WarnContext(ctx, "Failed to attach image, posting without it",
				"error", err,
				"imageURL", post.ImageURL,
				"link", post.Link)
		} else {
			req.Media = &tweetMedia{MediaIDs: []string{mediaID}}
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return &Error{Kind: KindTransient, Err: fmt.Errorf("encode tweet: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.apiBaseURL+"/2/tweets",
		bytes.NewReader(body),
	)
	if err != nil {
		return &Error{Kind: KindTransient, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return &Error{Kind: KindTransient, Err: fmt.Errorf("do request: %w", err)}
	}
	defer p.closeBody(ctx, resp, "Publish")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &Error{
			Kind: classifyStatus(resp.StatusCode),
			Err:  fmt.Errorf("create tweet: %s", responseSummary(resp)),
		}
	}

	return nil
}

func (p *XPublisher) uploadImage(ctx context.Context, imageURL string) (string, error) {
	image, err := p.downloadImage(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)

	part, err := writer.CreateFormFile("media", "media")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(image); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.mediaUploadURL, &form)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer p.closeBody(ctx, resp, "uploadImage")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("upload media: %s", responseSummary(resp))
	}

	var uploaded struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if uploaded.MediaIDString == "" {
		return "", fmt.Errorf("upload response has no media ID")
	}

	return uploaded.MediaIDString, nil
}

func (p *XPublisher) downloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer p.closeBody(ctx, resp, "downloadImage")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(image) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	return image, nil
}

func (p *XPublisher) closeBody(ctx context.Context, resp *http.Response, operation string) {
	if err := resp.Body.Close(); err != nil {
		p.log.ErrorContext(ctx, "Failed to close response body",
			"error", err,
			"operation", operation)
	}
}

func classifyStatus(statusCode int) Kind {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindTransient
	}
}

func responseSummary(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil || len(body) == 0 {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}

	return fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
