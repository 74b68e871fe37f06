// Package notify delivers advisory notifications to a broadcast channel.
// Delivery is at-most-once and best-effort: failures are reported, never
// retried, and never roll back earlier pipeline steps.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
)

// Bus publishes a message to the notification channel and returns the
// broker-assigned message id.
type Bus interface {
	Publish(ctx context.Context, subject, message string) (string, error)
}

// snsAPI narrows the SNS client surface for testing
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSBus publishes to a fixed SNS topic. The topic distributes to all
// subscribers; there is no per-recipient addressing.
type SNSBus struct {
	client   snsAPI
	topicARN string
	logger   *zap.Logger
}

// NewSNSBus creates a bus against a region and topic
func NewSNSBus(ctx context.Context, region, topicARN string, logger *zap.Logger) (*SNSBus, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SNSBus{
		client:   sns.NewFromConfig(cfg),
		topicARN: topicARN,
		logger:   logger,
	}, nil
}

// newSNSBusWith wires an explicit client; used by tests
func newSNSBusWith(client snsAPI, topicARN string, logger *zap.Logger) *SNSBus {
	return &SNSBus{client: client, topicARN: topicARN, logger: logger}
}

// Publish sends one message to the topic
func (b *SNSBus) Publish(ctx context.Context, subject, message string) (string, error) {
	out, err := b.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(b.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		b.logger.Error("Notification publish failed",
			zap.String("subject", subject),
			zap.Error(err))
		return "", fmt.Errorf("publish notification: %w", err)
	}

	id := aws.ToString(out.MessageId)
	b.logger.Info("Notification published",
		zap.String("subject", subject),
		zap.String("message_id", id))
	return id, nil
}
