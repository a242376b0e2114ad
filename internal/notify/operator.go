package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"provider-verify/internal/common/logger"
	"provider-verify/internal/models"
)

// SNSAPI is the slice of the SNS client the notifier uses.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes review-queue events for operators. The caller
// treats failures as best-effort; a lost notification only delays review,
// the queue projection remains authoritative.
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
	enabled  bool
	logger   logger.Logger
}

func NewSNSNotifier(client SNSAPI, topicARN string, enabled bool, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		client:   client,
		topicARN: topicARN,
		enabled:  enabled,
		logger:   log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

type reviewQueuedEvent struct {
	Event      string `json:"event"`
	CustomerID string `json:"customerId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// ReviewQueued announces that an applicant uploaded a license and is
// waiting for review.
func (n *SNSNotifier) ReviewQueued(ctx context.Context, applicant *models.Applicant) error {
	if !n.enabled {
		n.logger.Info("operator notifications disabled", map[string]interface{}{
			"customerId": applicant.ID,
		})
		return nil
	}

	payload, err := json.Marshal(reviewQueuedEvent{
		Event:      "review_queued",
		CustomerID: applicant.ID,
		Name:       fmt.Sprintf("%s %s", applicant.FirstName, applicant.LastName),
		Email:      applicant.Email,
	})
	if err != nil {
		return fmt.Errorf("marshal review event: %w", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("New license awaiting review"),
		Message:  aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("publish review event: %w", err)
	}

	n.logger.Info("review notification published", map[string]interface{}{
		"customerId": applicant.ID,
	})
	return nil
}
