package queue

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type fakeSQS struct {
	sent    []string
	deleted []string
	inbox   []types.Message
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	msgs := f.inbox
	f.inbox = nil
	return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQSClientSendReceiveDelete(t *testing.T) {
	fake := &fakeSQS{inbox: []types.Message{{
		Body:          aws.String(`{"jobId":"job-1","version":1}`),
		ReceiptHandle: aws.String("rh-1"),
		MessageId:     aws.String("m-1"),
	}}}
	client := &SQSClient{client: fake, queueURL: "https://sqs.local/queue"}
	ctx := context.Background()

	if err := client.Send(ctx, NewMessage("job-1", "req-1")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(fake.sent))
	}
	decoded, err := DecodeMessage([]byte(fake.sent[0]))
	if err != nil || decoded.JobID != "job-1" || decoded.RequestID != "req-1" {
		t.Fatalf("unexpected sent body %q err=%v", fake.sent[0], err)
	}

	deliveries, err := client.Receive(ctx, 10, 1)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(deliveries) != 1 || deliveries[0].ReceiptHandle != "rh-1" {
		t.Fatalf("unexpected deliveries %+v", deliveries)
	}
	if err := client.Delete(ctx, deliveries[0].ReceiptHandle); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "rh-1" {
		t.Fatalf("unexpected deletes %+v", fake.deleted)
	}
}
