package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is the payload published by RedisSink.
type Event struct {
	Email         string    `json:"email"`
	FileID        string    `json:"file_id"`
	DownloadCount int64     `json:"download_count"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Time          time.Time `json:"time"`
}

// RedisSink publishes notifications to a pub/sub channel for an external
// mailer to pick up.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisSink(client redis.UniversalClient, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Notify(ctx context.Context, email, fileRef string, downloadCount int64) error {
	payload, err := json.Marshal(Event{
		Email:         email,
		FileID:        fileRef,
		DownloadCount: downloadCount,
		Subject:       subject,
		Body:          Body(downloadCount),
		Time:          time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
