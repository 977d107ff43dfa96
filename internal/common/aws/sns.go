// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "versailles-assistant/internal/common/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of *sns.Client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Alert describes a degraded answer worth paging on.
type Alert struct {
	Reason     string    `json:"reason"`
	Query      string    `json:"query"`
	Confidence float64   `json:"confidence"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

type SNSClient struct {
	client   SNSAPI
	topicARN string
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg), topicARN), nil
}

func NewSNSClientWithAPI(api SNSAPI, topicARN string) *SNSClient {
	return &SNSClient{client: api, topicARN: topicARN}
}

// PublishAlert sends alert as a JSON message with the reason as a message attribute.
func (s *SNSClient) PublishAlert(ctx context.Context, alert Alert) (string, error) {
	if alert.At.IsZero() {
		alert.At = time.Now().UTC()
	}
	body, err := json.Marshal(alert)
	if err != nil {
		return "", apperrors.NewNotificationSendFailedError("alert", err)
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(fmt.Sprintf("Versailles assistant: %s", alert.Reason)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"reason": {DataType: aws.String("String"), StringValue: aws.String(alert.Reason)},
		},
	})
	if err != nil {
		return "", apperrors.NewNotificationSendFailedError("alert", err)
	}
	return aws.ToString(out.MessageId), nil
}
