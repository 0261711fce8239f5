package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kennel_media/internal/logging"
	"kennel_media/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleUpload() models.Upload {
	return models.Upload{
		ID:             uuid.New(),
		ObjectPath:     "/objects/uploads/abc",
		Owner:          "admin-1",
		Visibility:     models.VisibilityPublic,
		Status:         models.UploadStatusAcknowledged,
		AcknowledgedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	up := sampleUpload()

	require.NoError(t, p.Publish(context.Background(), up))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "/objects/uploads/abc", string(w.msgs[0].Key))

	var ev Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, TypeAcknowledged, ev.Type)
	assert.Equal(t, up, ev.Upload)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker unavailable")}}

	err := p.Publish(context.Background(), sampleUpload())
	assert.ErrorContains(t, err, "events.Publish")
}

type fakeReader struct {
	mu     sync.Mutex
	queue  []kafka.Message
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestConsumer_Run(t *testing.T) {
	good := sampleUpload()
	goodValue, err := json.Marshal(Event{Type: TypeAcknowledged, Upload: good})
	require.NoError(t, err)
	otherValue, err := json.Marshal(Event{Type: "object.deleted"})
	require.NoError(t, err)

	reader := &fakeReader{queue: []kafka.Message{
		{Value: []byte("{not json")},
		{Value: otherValue},
		{Value: goodValue},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	var handled []models.Upload
	c := &Consumer{
		reader: reader,
		log:    logging.Discard(),
		handle: func(_ context.Context, up models.Upload) error {
			handled = append(handled, up)
			cancel()
			return nil
		},
	}

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}

	require.Len(t, handled, 1)
	assert.Equal(t, good, handled[0])
	assert.True(t, reader.closed)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), sampleUpload()))
	assert.NoError(t, p.Close())
}
