package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provider-verify/internal/common/logger"
	"provider-verify/internal/models"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, nil
}

func applicant() *models.Applicant {
	return &models.Applicant{
		ID:        "cust-1",
		FirstName: "Dana",
		LastName:  "Reeves",
		Email:     "dana@example.com",
	}
}

func TestReviewQueuedPublishesEvent(t *testing.T) {
	client := &fakeSNS{}
	n := NewSNSNotifier(client, "arn:aws:sns:us-east-1:1:reviews", true, logger.NewNop())

	require.NoError(t, n.ReviewQueued(context.Background(), applicant()))

	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:1:reviews", *input.TopicArn)

	var event reviewQueuedEvent
	require.NoError(t, json.Unmarshal([]byte(*input.Message), &event))
	assert.Equal(t, "review_queued", event.Event)
	assert.Equal(t, "cust-1", event.CustomerID)
	assert.Equal(t, "Dana Reeves", event.Name)
	assert.Equal(t, "dana@example.com", event.Email)
}

func TestReviewQueuedSurfacesPublishError(t *testing.T) {
	client := &fakeSNS{err: fmt.Errorf("sns unavailable")}
	n := NewSNSNotifier(client, "arn:topic", true, logger.NewNop())

	assert.Error(t, n.ReviewQueued(context.Background(), applicant()))
}

func TestDisabledNotifierSkipsPublish(t *testing.T) {
	client := &fakeSNS{err: fmt.Errorf("must not be called")}
	n := NewSNSNotifier(client, "arn:topic", false, logger.NewNop())

	assert.NoError(t, n.ReviewQueued(context.Background(), applicant()))
	assert.Empty(t, client.inputs)
}
