package config

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// ConnectPubSub returns the notification topic. It uses Application Default
// Credentials unless PUBSUB_CREDENTIALS_JSON is set.
func ConnectPubSub(ctx context.Context, cfg PubSubConfig) (*pubsub.Client, *pubsub.Topic, error) {
	if cfg.ProjectID == "" {
		return nil, nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub client (project_id=%s): %w", cfg.ProjectID, err)
	}

	topic := client.Topic(cfg.Topic)
	ok, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("check topic %q: %w", cfg.Topic, err)
	}
	if !ok {
		if topic, err = client.CreateTopic(ctx, cfg.Topic); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("create topic %q: %w", cfg.Topic, err)
		}
	}
	return client, topic, nil
}
