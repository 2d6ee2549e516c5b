package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	published map[string][]byte
	failOn    string
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if channel == f.failOn {
		cmd.SetErr(errors.New("connection reset"))
		return cmd
	}
	if f.published == nil {
		f.published = make(map[string][]byte)
	}
	f.published[channel] = message.([]byte)
	cmd.SetVal(1)
	return cmd
}

type fakeKafka struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeKafka) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafka) Close() error {
	f.closed = true
	return nil
}

func completedEnvelope(t *testing.T, owner *int64) Envelope {
	t.Helper()
	size := int64(42)
	env, err := NewAssetEnvelope(EventTypeAssetCompleted, AssetPayload{
		AssetID:    "a1",
		OwnerID:    owner,
		StorageKey: "uploads/a1/clip.mp4",
		Status:     "completed",
		SizeBytes:  &size,
	})
	require.NoError(t, err)
	return env
}

func TestNewAssetEnvelope(t *testing.T) {
	env := completedEnvelope(t, nil)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, AggregateTypeAsset, env.AggregateType)
	assert.Equal(t, "a1", env.AggregateID)
	assert.False(t, env.OccurredAt.IsZero())

	p, err := env.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, "uploads/a1/clip.mp4", p.StorageKey)
	require.NotNil(t, p.SizeBytes)
	assert.Equal(t, int64(42), *p.SizeBytes)
}

func TestAssetChannelResolver(t *testing.T) {
	r := NewAssetChannelResolver("channel:assets")
	owner := int64(7)

	assert.Equal(t,
		[]string{"channel:assets", "channel:asset:a1", "channel:owner:7"},
		r.ResolveChannels(Envelope{AggregateID: "a1"}, AssetPayload{OwnerID: &owner}))
	assert.Equal(t,
		[]string{"channel:asset:a1"},
		NewAssetChannelResolver("").ResolveChannels(Envelope{AggregateID: "a1"}, AssetPayload{}))
}

func TestRedisPublisher_Publish(t *testing.T) {
	fake := &fakeRedis{}
	p := &RedisPublisher{client: fake, resolver: NewAssetChannelResolver("channel:assets")}
	owner := int64(7)

	require.NoError(t, p.Publish(context.Background(), completedEnvelope(t, &owner)))
	assert.Len(t, fake.published, 3)

	var got Envelope
	require.NoError(t, json.Unmarshal(fake.published["channel:asset:a1"], &got))
	assert.Equal(t, EventTypeAssetCompleted, got.EventType)
}

func TestRedisPublisher_PartialChannelFailure(t *testing.T) {
	fake := &fakeRedis{failOn: "channel:assets"}
	p := &RedisPublisher{client: fake, resolver: NewAssetChannelResolver("channel:assets")}

	err := p.Publish(context.Background(), completedEnvelope(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel:assets")
	assert.Contains(t, fake.published, "channel:asset:a1", "other channels still receive the event")
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fake := &fakeKafka{}
	p := &KafkaPublisher{writer: fake}

	require.NoError(t, p.Publish(context.Background(), completedEnvelope(t, nil)))
	require.Len(t, fake.msgs, 1)
	assert.Equal(t, "a1", string(fake.msgs[0].Key))
	assert.Equal(t, "event_type", fake.msgs[0].Headers[0].Key)
	assert.Equal(t, EventTypeAssetCompleted, string(fake.msgs[0].Headers[0].Value))

	fake.err = errors.New("leader not available")
	assert.Error(t, p.Publish(context.Background(), completedEnvelope(t, nil)))

	require.NoError(t, p.Close())
	assert.True(t, fake.closed)
}

func TestRecordingPublisher(t *testing.T) {
	p := &RecordingPublisher{}
	require.NoError(t, p.Publish(context.Background(), Envelope{EventType: EventTypeAssetFailed}))
	assert.Equal(t, []string{EventTypeAssetFailed}, p.Types())

	p.Err = errors.New("down")
	assert.Error(t, p.Publish(context.Background(), Envelope{}))
	assert.Len(t, p.Events(), 1)
}
