package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrDisabled is returned when no index host or key is configured.
var ErrDisabled = errors.New("vector store not configured")

const apiVersion = "2025-01"

type Config struct {
	APIKey    string
	IndexHost string
	Namespace string
	Timeout   time.Duration
}

// Vector is a single indexed record.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is a scored query hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Client is a minimal Pinecone data-plane client.
type Client struct {
	cfg    Config
	base   string
	http   *http.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "questions"
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.IndexHost), "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Client{
		cfg:    cfg,
		base:   base,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("client", "pinecone")),
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.base != "" && strings.TrimSpace(c.cfg.APIKey) != ""
}

type upsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type upsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

// Upsert writes vectors into the configured namespace.
func (c *Client) Upsert(ctx context.Context, vectors []Vector) (int64, error) {
	if !c.Enabled() {
		return 0, ErrDisabled
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	out, err := doJSON[upsertResponse](ctx, c, "/vectors/upsert", upsertRequest{Vectors: vectors, Namespace: c.cfg.Namespace})
	if err != nil {
		return 0, err
	}
	return out.UpsertedCount, nil
}

type queryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Query returns the topK nearest vectors, optionally filtered by metadata.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if topK <= 0 {
		topK = 5
	}
	out, err := doJSON[queryResponse](ctx, c, "/query", queryRequest{
		Namespace:       c.cfg.Namespace,
		Vector:          vector,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	return out.Matches, nil
}

type deleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

// Delete removes vectors by id.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := doJSON[struct{}](ctx, c, "/vectors/delete", deleteRequest{IDs: ids, Namespace: c.cfg.Namespace})
	return err
}

func doJSON[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinecone request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("pinecone call failed", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("pinecone http %d: %s", resp.StatusCode, string(raw))
	}

	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone decode: %w", err)
	}
	return &out, nil
}
