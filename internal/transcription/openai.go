package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/whispertype/whispertype/internal/logger"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config holds OpenAI transcription configuration
type Config struct {
	APIKey         string
	Model          string
	Language       string // ISO 639-1 code, empty for auto-detect
	BaseURL        string
	TimeoutSeconds int
}

// DefaultConfig returns the default transcription configuration
func DefaultConfig() Config {
	return Config{
		Model:          "whisper-1",
		BaseURL:        defaultBaseURL,
		TimeoutSeconds: 30,
	}
}

// OpenAIClient transcribes audio through the OpenAI audio API
type OpenAIClient struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

// NewOpenAIClient creates a transcription client
func NewOpenAIClient(cfg Config, log *logger.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("transcription API key is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultConfig().TimeoutSeconds
	}

	return &OpenAIClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		log: log.Named("transcription"),
	}, nil
}

// Name identifies the provider
func (c *OpenAIClient) Name() string {
	return c.cfg.Model
}

// Transcribe uploads the WAV file and returns the recognized text
func (c *OpenAIClient) Transcribe(ctx context.Context, wavPath string) (string, error) {
	file, err := os.Open(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy audio data: %w", err)
	}

	if err := writer.WriteField("model", c.cfg.Model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if c.cfg.Language != "" {
		if err := writer.WriteField("language", c.cfg.Language); err != nil {
			return "", fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	url := c.cfg.BaseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription API returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	text := normalizeWhitespace(result.Text)
	c.log.Info("transcription completed",
		logger.String("model", c.cfg.Model),
		logger.Int("chars", len(text)),
		logger.Duration("elapsed", time.Since(start)))

	return text, nil
}

// Close releases client resources
func (c *OpenAIClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// normalizeWhitespace collapses runs of whitespace, including newlines the
// API sometimes emits, into single spaces
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
