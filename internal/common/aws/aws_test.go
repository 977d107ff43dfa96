package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestPublishAlert(t *testing.T) {
	api := &fakeSNS{}
	client := NewSNSClientWithAPI(api, "arn:aws:sns:eu-west-3:123:alerts")

	id, err := client.PublishAlert(context.Background(), Alert{
		Reason:     "low_confidence",
		Query:      "Plan my day",
		Confidence: 0.2,
		At:         time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "arn:aws:sns:eu-west-3:123:alerts", aws.ToString(api.input.TopicArn))
	assert.Equal(t, "Versailles assistant: low_confidence", aws.ToString(api.input.Subject))
	assert.Equal(t, "low_confidence", aws.ToString(api.input.MessageAttributes["reason"].StringValue))

	var body Alert
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(api.input.Message)), &body))
	assert.Equal(t, "Plan my day", body.Query)
	assert.InDelta(t, 0.2, body.Confidence, 1e-9)
}

func TestPublishAlert_Error(t *testing.T) {
	client := NewSNSClientWithAPI(&fakeSNS{err: errors.New("throttled")}, "arn")

	_, err := client.PublishAlert(context.Background(), Alert{Reason: "router_fallback"})
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
}

func TestSendTranscript(t *testing.T) {
	api := &fakeSES{}
	client := NewSESClientWithAPI(api, "assistant@example.com")

	conv := models.Conversation{
		ID: "c-1",
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: "When does the palace open?"},
			{Role: models.RoleAssistant, Content: "At 9:00."},
		},
	}
	id, err := client.SendTranscript(context.Background(), "visitor@example.com", conv)
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	assert.Equal(t, []string{"visitor@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "assistant@example.com", aws.ToString(api.input.Source))
	assert.Equal(t, "Conversation c-1\n\nYou:\nWhen does the palace open?\n\nAssistant:\nAt 9:00.\n", aws.ToString(api.input.Message.Body.Text.Data))
}

func TestSendTranscript_InvalidRecipient(t *testing.T) {
	api := &fakeSES{}
	_, err := NewSESClientWithAPI(api, "a@example.com").SendTranscript(context.Background(), "not-an-email", models.Conversation{})

	assert.Equal(t, 400, apperrors.HTTPStatus(err))
	assert.Nil(t, api.input)
}
