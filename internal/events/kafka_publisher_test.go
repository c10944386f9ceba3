package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil, nil)
	assert.ErrorIs(t, err, ErrNoBrokers)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, nil)
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestPublishMapsTopicAndKey(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w, topicByEvent: map[string]string{AnalysisCompleted: "reelscore.analyses"}}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), Event{
		Type:       AnalysisCompleted,
		Key:        "b5c1d2",
		OccurredAt: at,
		Payload:    map[string]int{"viral_score": 85},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "reelscore.analyses", msg.Topic)
	assert.Equal(t, []byte("b5c1d2"), msg.Key)
	assert.Equal(t, at, msg.Time)

	var decoded struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, AnalysisCompleted, decoded.Type)
	assert.Equal(t, 85, decoded.Payload["viral_score"])
}

func TestPublishDefaultsTopicAndTime(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), Event{Type: AnalysisCompleted, Key: "k"}))
	assert.Equal(t, AnalysisCompleted, w.msgs[0].Topic)
	assert.False(t, w.msgs[0].Time.IsZero())
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &recordingWriter{err: boom}}

	err := p.Publish(context.Background(), Event{Type: AnalysisCompleted})
	assert.ErrorIs(t, err, boom)
}
