package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrigation_controller/internal/telemetry"
)

var env = Envelope{
	DeviceID:   "field-1",
	ReceivedAt: time.Date(2026, 7, 1, 5, 0, 0, 0, time.UTC),
	Record: telemetry.Record{
		Temperature: 24.1, Humidity: 57, SoilMoisture: 38, SoilMoistureRaw: 3290, PumpCommand: "PUMP_ON",
	},
}

// doneToken is an already-completed mqtt.Token.
type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// pendingToken never completes.
type pendingToken struct{ doneToken }

func (pendingToken) Done() <-chan struct{} { return make(chan struct{}) }

type fakeMQTT struct {
	topic        string
	qos          byte
	retained     bool
	payload      []byte
	token        mqtt.Token
	disconnected bool
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.topic, f.qos, f.retained = topic, qos, retained
	f.payload = payload.([]byte)
	return f.token
}

func (f *fakeMQTT) Disconnect(uint) { f.disconnected = true }

func TestMQTTSink_Publish(t *testing.T) {
	fake := &fakeMQTT{token: doneToken{}}
	s := newMQTTSink(fake, "irrigation/telemetry")

	require.NoError(t, s.Publish(context.Background(), env))
	assert.Equal(t, "irrigation/telemetry", fake.topic)
	assert.Zero(t, fake.qos)
	assert.False(t, fake.retained)

	var got Envelope
	require.NoError(t, json.Unmarshal(fake.payload, &got))
	assert.Equal(t, env.Record, got.Record)
	assert.Equal(t, "field-1", got.DeviceID)

	require.NoError(t, s.Close())
	assert.True(t, fake.disconnected)
}

func TestMQTTSink_PublishErrors(t *testing.T) {
	s := newMQTTSink(&fakeMQTT{token: doneToken{err: errors.New("not connected")}}, "t")
	assert.ErrorContains(t, s.Publish(context.Background(), env), "not connected")

	s = newMQTTSink(&fakeMQTT{token: pendingToken{}}, "t")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Publish(ctx, env), context.DeadlineExceeded)
}

type fakeKafka struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeKafka) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeKafka) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSink_KeyedByDevice(t *testing.T) {
	fake := &fakeKafka{}
	s := newKafkaSink(fake)

	require.NoError(t, s.Publish(context.Background(), env))
	require.Len(t, fake.msgs, 1)
	assert.Equal(t, "field-1", string(fake.msgs[0].Key))
	assert.Equal(t, env.ReceivedAt, fake.msgs[0].Time)
	assert.Contains(t, string(fake.msgs[0].Value), `"pump_command":"PUMP_ON"`)

	fake.err = errors.New("leader not available")
	assert.ErrorContains(t, s.Publish(context.Background(), env), "leader not available")

	require.NoError(t, s.Close())
	assert.True(t, fake.closed)
}

type countingSink struct {
	n      int
	err    error
	closed bool
}

func (c *countingSink) Publish(context.Context, Envelope) error { c.n++; return c.err }
func (c *countingSink) Close() error                            { c.closed = true; return c.err }

func TestFanout_PublishesToAllAndJoinsErrors(t *testing.T) {
	ok := &countingSink{}
	bad := &countingSink{err: errors.New("broker down")}
	f := Fanout{bad, ok}

	err := f.Publish(context.Background(), env)
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, ok.n, "a failing sink must not starve the others")

	assert.Error(t, f.Close())
	assert.True(t, ok.closed)

	assert.NoError(t, Fanout{}.Publish(context.Background(), env))
}
