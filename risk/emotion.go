package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// EmotionScore is one (label, score) pair returned by the external service,
// in service order.
type EmotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Signal is the typed result of the external call. Available is false when
// the service is unreachable, unauthorized, timed out, or returned nothing
// usable; the classifier then falls back to the keyword-only path.
type Signal struct {
	Available bool
	Emotions  []EmotionScore
}

type EmotionClassifier interface {
	ClassifyEmotions(ctx context.Context, text string) Signal
}

// HTTPEmotionClassifier calls an inference endpoint that labels a text with
// emotion scores (huggingface-style: POST {"inputs": text}, response is a
// batch of [{label, score}] rows).
type HTTPEmotionClassifier struct {
	endpoint string
	token    string
	timeout  time.Duration
	client   *http.Client
	log      *slog.Logger
}

func NewHTTPEmotionClassifier(endpoint, token string, timeout time.Duration, log *slog.Logger) *HTTPEmotionClassifier {
	return &HTTPEmotionClassifier{
		endpoint: endpoint,
		token:    token,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

// ClassifyEmotions never fails: every error path degrades to an unavailable
// signal, logged at debug so a flaky upstream does not flood the logs.
func (c *HTTPEmotionClassifier) ClassifyEmotions(ctx context.Context, text string) Signal {
	if c.endpoint == "" {
		return Signal{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return c.unavailable("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return c.unavailable("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.unavailable("call service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.unavailable("service status", fmt.Errorf("http %d", resp.StatusCode))
	}

	emotions, err := decodeEmotions(resp.Body)
	if err != nil {
		return c.unavailable("decode response", err)
	}
	if len(emotions) == 0 {
		return Signal{}
	}
	return Signal{Available: true, Emotions: emotions}
}

func (c *HTTPEmotionClassifier) unavailable(stage string, err error) Signal {
	c.log.Debug("emotion service unavailable", "stage", stage, "error", err)
	return Signal{}
}

// decodeEmotions accepts both the batched form [[{label,score}]] and the
// flat form [{label,score}].
func decodeEmotions(r io.Reader) ([]EmotionScore, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var batched [][]EmotionScore
	if err := json.Unmarshal(raw, &batched); err == nil {
		if len(batched) == 0 {
			return nil, nil
		}
		return batched[0], nil
	}

	var flat []EmotionScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	return flat, nil
}
