package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/storage/models"
	"github.com/rentguard/backend/pkg/logger"
)

// Client caches finished reports so the polling endpoint doesn't hit
// SQLite on every attempt.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetReport(ctx context.Context, report *models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	err = c.client.Set(ctx, reportKey(report.DocumentID), data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set report cache: %w", err)
	}

	logger.Debug("Report cached", zap.String("document_id", report.DocumentID))
	return nil
}

func (c *Client) GetReport(ctx context.Context, documentID string) (*models.Report, bool, error) {
	data, err := c.client.Get(ctx, reportKey(documentID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get report cache: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}

	logger.Debug("Report cache hit", zap.String("document_id", documentID))
	return &report, true, nil
}

// InvalidateReport drops a stale entry before a re-analysis run.
func (c *Client) InvalidateReport(ctx context.Context, documentID string) error {
	err := c.client.Del(ctx, reportKey(documentID)).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate report cache: %w", err)
	}
	return nil
}

// SetExplanation caches clause-consult responses keyed by clause text hash.
func (c *Client) SetExplanation(ctx context.Context, clauseHash, explanation string) error {
	err := c.client.Set(ctx, explanationKey(clauseHash), explanation, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set explanation cache: %w", err)
	}
	return nil
}

func (c *Client) GetExplanation(ctx context.Context, clauseHash string) (string, bool, error) {
	val, err := c.client.Get(ctx, explanationKey(clauseHash)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get explanation cache: %w", err)
	}
	return val, true, nil
}

func reportKey(documentID string) string {
	return fmt.Sprintf("report:%s", documentID)
}

func explanationKey(hash string) string {
	return fmt.Sprintf("explain:%s", hash)
}
