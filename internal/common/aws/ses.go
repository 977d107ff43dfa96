// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"
	"strings"

	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/validation"
	"versailles-assistant/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of *ses.Client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESClient struct {
	client SESAPI
	from   string
}

func NewSESClient(ctx context.Context, region, from string) (*SESClient, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewSESClientWithAPI(ses.NewFromConfig(cfg), from), nil
}

func NewSESClientWithAPI(api SESAPI, from string) *SESClient {
	return &SESClient{client: api, from: from}
}

// SendTranscript emails the conversation as plain text and returns the SES message id.
func (s *SESClient) SendTranscript(ctx context.Context, to string, conv models.Conversation) (string, error) {
	if !validation.ValidateEmail(to) {
		return "", apperrors.NewInvalidChatRequestError(fmt.Sprintf("invalid recipient address: %s", to))
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.from),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("Your Versailles conversation"), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(BuildTranscript(conv)), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return "", apperrors.NewNotificationSendFailedError("email", err)
	}
	return aws.ToString(out.MessageId), nil
}

// BuildTranscript renders the conversation one message per paragraph.
func BuildTranscript(conv models.Conversation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conversation %s\n", conv.ID)
	if !conv.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "Started %s\n", conv.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	for _, msg := range conv.Messages {
		role := msg.Role
		switch role {
		case models.RoleUser:
			role = "You"
		case models.RoleAssistant:
			role = "Assistant"
		}
		fmt.Fprintf(&sb, "\n%s:\n%s\n", role, msg.Content)
	}
	return sb.String()
}
