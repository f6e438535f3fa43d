package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cms_chat_console/internal/config"
	"cms_chat_console/internal/model"
	"cms_chat_console/pkg/constants"
)

func TestChannelBrokerBroadcast(t *testing.T) {
	b := NewChannelBroker()
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()
	assert.Equal(t, 2, b.Subscribers())

	u := model.Update{Type: model.UpdateMessage, ChatID: 3, Action: model.ActionCreate}
	require.NoError(t, b.Publish(context.Background(), u))
	assert.Equal(t, u, <-ch1)
	assert.Equal(t, u, <-ch2)

	cancel1()
	cancel1()
	_, ok := <-ch1
	assert.False(t, ok)
	assert.Equal(t, 1, b.Subscribers())
}

func TestChannelBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewChannelBroker()
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < constants.CHANNEL_SIZE+10; i++ {
		require.NoError(t, b.Publish(context.Background(), model.Update{Type: model.UpdateStatus}))
	}
	assert.Len(t, ch, constants.CHANNEL_SIZE)
}

func TestChannelBrokerClose(t *testing.T) {
	b := NewChannelBroker()
	ch, cancel := b.Subscribe()
	require.NoError(t, b.Close())
	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	late, _ := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

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

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "events"}
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	require.NoError(t, p.Publish(context.Background(), model.Update{Type: model.UpdateMessage, ChatID: 12, At: at}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "12", string(w.msgs[0].Key))
	assert.Equal(t, "message", string(w.msgs[0].Headers[0].Value))

	var got model.Update
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, int64(12), got.ChatID)

	w.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), model.Update{}))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestFanoutContinuesOnError(t *testing.T) {
	b := NewChannelBroker()
	ch, cancel := b.Subscribe()
	defer cancel()
	bad := &KafkaPublisher{writer: &fakeWriter{err: errors.New("down")}}

	err := Fanout{bad, b}.Publish(context.Background(), model.Update{Type: model.UpdateChats})
	assert.Error(t, err)
	assert.Equal(t, model.UpdateChats, (<-ch).Type)
}

func TestNewPublisherChannelMode(t *testing.T) {
	b := NewChannelBroker()
	p := NewPublisher(config.KafkaConfig{MessageMode: "channel"}, b)
	assert.Same(t, b, p)
}

type fakeReader struct {
	msgs []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error { return nil }

func TestKafkaSubscriberSkipsInvalid(t *testing.T) {
	good, _ := json.Marshal(model.Update{Type: model.UpdateSelected, ChatID: 4})
	s := &KafkaSubscriber{reader: &fakeReader{msgs: []kafka.Message{{Value: []byte("{bad")}, {Value: good}}}}

	var got []model.Update
	err := s.Run(context.Background(), func(u model.Update) { got = append(got, u) })
	assert.Error(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].ChatID)
}
