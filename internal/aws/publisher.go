package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Publisher sends messages to a single SQS queue.
type Publisher struct {
	sqs      SQSAPI
	queueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		sqs:      sqsClient,
		queueURL: queueURL,
	}
}

// Send enqueues body with the given string message attributes and returns the SQS message id.
func (p *Publisher) Send(ctx context.Context, body string, attributes map[string]string) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(p.queueURL),
		MessageBody: sdkaws.String(body),
	}

	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]sqstypes.MessageAttributeValue, len(attributes))
		for name, v := range attributes {
			if v == "" {
				// SQS rejects empty attribute values
				continue
			}
			input.MessageAttributes[name] = sqstypes.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
	}

	out, err := p.sqs.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", p.queueURL, err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
