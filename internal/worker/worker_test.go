package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/task"
	"github.com/cuongbtq/dataset-hub/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTaskID = "0b6f7c56-8d0a-4f53-9b5c-3c2f1e9a7d10"

type ackResult struct {
	tag     uint64
	ack     bool
	requeue bool
}

// fakeAcknowledger implements amqp.Acknowledger
type fakeAcknowledger struct {
	results chan ackResult
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{results: make(chan ackResult, 16)}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.results <- ackResult{tag: tag, ack: true}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.results <- ackResult{tag: tag, requeue: requeue}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) next(t *testing.T) ackResult {
	t.Helper()
	select {
	case r := <-a.results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ack/nack")
		return ackResult{}
	}
}

type fakeConsumer struct {
	deliveries chan amqp.Delivery
	qosErr     error
	prefetch   int
	tag        string
}

func (c *fakeConsumer) Qos(prefetchCount int) error {
	c.prefetch = prefetchCount
	return c.qosErr
}

func (c *fakeConsumer) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	c.tag = consumerTag
	return c.deliveries, nil
}

type fakeProcessor struct {
	mu   sync.Mutex
	jobs []task.Job
	err  error
}

func (p *fakeProcessor) Generate(ctx context.Context, job task.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return p.err
}

func (p *fakeProcessor) Jobs() []task.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]task.Job(nil), p.jobs...)
}

func newTestWorker(consumer Consumer, processor JobProcessor) *Worker {
	return NewWorker(&Config{
		Logger:       slog.New(slog.DiscardHandler),
		RabbitClient: consumer,
		Processor:    processor,
		Concurrency:  2,
	})
}

func TestDecodeJob(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    task.Job
		wantErr bool
	}{
		{
			name: "valid",
			body: `{"task_id":"` + validTaskID + `","owner":5,"sbm":"/up/a.sbm","ontology":"/up/b.owl","title":"a"}`,
			want: task.Job{TaskID: validTaskID, Owner: 5, SBMPath: "/up/a.sbm", OntologyPath: "/up/b.owl", Title: "a"},
		},
		{
			name: "without ontology",
			body: `{"task_id":"` + validTaskID + `","owner":5,"sbm":"/up/a.sbm","title":"a"}`,
			want: task.Job{TaskID: validTaskID, Owner: 5, SBMPath: "/up/a.sbm", Title: "a"},
		},
		{name: "not json", body: `task`, wantErr: true},
		{name: "bad task id", body: `{"task_id":"42","owner":5,"sbm":"/up/a.sbm"}`, wantErr: true},
		{name: "missing sbm", body: `{"task_id":"` + validTaskID + `","owner":5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeJob([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorker_Handle(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantAck bool
	}{
		{name: "success is acked", wantAck: true},
		{name: "failure is dropped", err: errors.New("redis down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := newFakeAcknowledger()
			w := newTestWorker(&fakeConsumer{}, &fakeProcessor{err: tt.err})

			w.handle(context.Background(), "w-0", &domain.JobMessage{
				Job:      task.Job{TaskID: validTaskID},
				Delivery: amqp.Delivery{Acknowledger: ack, DeliveryTag: 9},
			})

			got := ack.next(t)
			assert.Equal(t, uint64(9), got.tag)
			assert.Equal(t, tt.wantAck, got.ack)
			assert.False(t, got.requeue)
		})
	}
}

func TestWorker_Start(t *testing.T) {
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery)}
	processor := &fakeProcessor{}
	w := newTestWorker(consumer, processor)
	ack := newFakeAcknowledger()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	consumer.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         []byte(`{"task_id":"` + validTaskID + `","owner":1,"sbm":"/up/a.sbm","title":"a"}`),
	}
	consumer.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  2,
		Body:         []byte(`garbage`),
	}

	results := map[uint64]ackResult{}
	for range 2 {
		r := ack.next(t)
		results[r.tag] = r
	}
	assert.True(t, results[1].ack)
	assert.False(t, results[2].ack)
	assert.False(t, results[2].requeue)

	cancel()
	require.NoError(t, <-errCh)
	w.Stop()

	assert.Equal(t, 2, consumer.prefetch)
	assert.Contains(t, consumer.tag, domain.ConsumerTagPrefix)
	require.Len(t, processor.Jobs(), 1)
	assert.Equal(t, validTaskID, processor.Jobs()[0].TaskID)
}

func TestWorker_Start_ChannelClosed(t *testing.T) {
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery)}
	w := newTestWorker(consumer, &fakeProcessor{})
	close(consumer.deliveries)

	err := w.Start(context.Background())
	require.Error(t, err)
	w.Stop()
}

func TestWorker_Start_QosError(t *testing.T) {
	w := newTestWorker(&fakeConsumer{qosErr: errors.New("channel closed")}, &fakeProcessor{})

	err := w.Start(context.Background())
	require.Error(t, err)
}
