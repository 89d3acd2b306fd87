package eventqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

// sqsAPI is the minimal SQS interface required by Publisher.
type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// message is the queue record consumed by the interaction recorder.
type message struct {
	Mobile    string `json:"mobile"`
	Name      string `json:"c_name"`
	MessageID string `json:"m_id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Content   string `json:"content"`
}

// Publisher pushes handled inbound events to an SQS queue.
type Publisher struct {
	api      sqsAPI
	queueURL string
}

func New(api sqsAPI, queueURL string) (*Publisher, error) {
	if api == nil {
		return nil, errors.New("eventqueue: api must not be nil")
	}
	if strings.TrimSpace(queueURL) == "" {
		return nil, errors.New("eventqueue: queue url must not be empty")
	}
	return &Publisher{api: api, queueURL: queueURL}, nil
}

// Publish sends ev as one queue message.
func (p *Publisher) Publish(ctx context.Context, ev domain.InboundEvent) error {
	body, err := json.Marshal(message{
		Mobile:    ev.From,
		Name:      ev.SenderName,
		MessageID: ev.MessageID,
		Timestamp: ev.Timestamp,
		Type:      ev.RawType,
		Content:   ev.Content(),
	})
	if err != nil {
		return fmt.Errorf("eventqueue: marshal event: %w", err)
	}

	if _, err := p.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	}); err != nil {
		return fmt.Errorf("eventqueue: send message: %w", err)
	}
	return nil
}
