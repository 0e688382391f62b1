package link

import (
	"bufio"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrigation_controller/internal/control"
	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/models"
	"irrigation_controller/internal/protocol"
	"irrigation_controller/internal/pump"
	"irrigation_controller/internal/telemetry"
)

const record = `{"temperature":23.5,"humidity":60,"soil_moisture":31,"soil_moisture_raw":3200,"pump_command":"PUMP_ON"}`

type duplex struct {
	io.Reader
	io.Writer
}

// fakeController is the far end of the link. Each command line is passed to
// answer; a non-empty result is written back.
type fakeController struct {
	out *io.PipeWriter
}

func newPair(t *testing.T, answer func(string) string) (*Link, *fakeController, context.CancelFunc) {
	t.Helper()
	toCtl, fromSup := io.Pipe()
	toSup, fromCtl := io.Pipe()

	fc := &fakeController{out: fromCtl}
	go func() {
		sc := bufio.NewScanner(toCtl)
		for sc.Scan() {
			if resp := answer(sc.Text()); resp != "" {
				fc.emit(resp)
			}
		}
	}()

	l := New(duplex{Reader: toSup, Writer: fromSup}, 200*time.Millisecond, 80*time.Millisecond, logger.Get(logger.ErrorLevel))
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		_ = fromCtl.Close()
		_ = fromSup.Close()
	})
	return l, fc, cancel
}

func (f *fakeController) emit(line string) {
	_, _ = io.WriteString(f.out, line+"\n")
}

func silent(string) string { return "" }

func TestLink_RecordMakesConnectedUntilStale(t *testing.T) {
	l, fc, _ := newPair(t, silent)
	assert.False(t, l.Connected())

	fc.emit(record)
	require.Eventually(t, l.Connected, time.Second, 5*time.Millisecond)

	s, ok := l.Latest()
	require.True(t, ok)
	assert.Equal(t, 31, s.Record.SoilMoisture)
	assert.True(t, s.Record.PumpOn())

	st, known := l.Status()
	assert.True(t, st.PumpOn)
	assert.False(t, known, "records carry no mode")

	require.Eventually(t, func() bool { return !l.Connected() }, time.Second, 10*time.Millisecond)
}

func TestLink_SendReturnsAck(t *testing.T) {
	m := control.NewMachine(control.DefaultPolicy(), pump.NewRelay(false))
	h := protocol.NewHandler(m)
	l, _, _ := newPair(t, func(line string) string {
		resp, _ := h.Handle(line, time.Now())
		return resp
	})

	resp, err := l.Send(context.Background(), "PUMP_ON")
	require.NoError(t, err)
	assert.Equal(t, "ACK: Pump turned ON, Mode: MANUAL", resp)

	st, known := l.Status()
	require.True(t, known)
	assert.Equal(t, protocol.Status{PumpOn: true, Mode: models.ModeManual}, st)

	resp, err = l.Send(context.Background(), "AUTO_MODE")
	require.NoError(t, err)
	assert.Contains(t, resp, "Mode: AUTO")
}

func TestLink_SendReportsRejection(t *testing.T) {
	l, _, _ := newPair(t, func(line string) string { return "ERROR: Unknown command: " + line })

	resp, err := l.Send(context.Background(), "FOO")
	require.ErrorIs(t, err, ErrCommandRejected)
	assert.Equal(t, "ERROR: Unknown command: FOO", resp)
}

func TestLink_SendTimesOut(t *testing.T) {
	l, _, _ := newPair(t, silent)

	_, err := l.Send(context.Background(), "STATUS")
	require.ErrorIs(t, err, ErrCommandTimeout)
}

func TestLink_SendHonoursCallerContext(t *testing.T) {
	l, _, _ := newPair(t, silent)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Send(ctx, "STATUS")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLink_LateReplyIsNotMistakenForNextAnswer(t *testing.T) {
	calls := 0
	var fc *fakeController
	l, fc, _ := newPair(t, func(line string) string {
		calls++
		if calls == 1 {
			go func() {
				time.Sleep(300 * time.Millisecond)
				fc.emit("ACK: Pump is OFF, Mode: MANUAL")
			}()
			return ""
		}
		return "ACK: Pump turned ON, Mode: MANUAL"
	})

	_, err := l.Send(context.Background(), "STATUS")
	require.ErrorIs(t, err, ErrCommandTimeout)

	time.Sleep(150 * time.Millisecond)
	resp, err := l.Send(context.Background(), "PUMP_ON")
	require.NoError(t, err)
	assert.Equal(t, "ACK: Pump turned ON, Mode: MANUAL", resp)
}

func TestLink_SubscribersSeeDiagnosticsAndExpiry(t *testing.T) {
	l, fc, _ := newPair(t, silent)
	lines, unsubscribe := l.Subscribe(4)
	defer unsubscribe()

	fc.emit("WARNING: " + telemetry.ThermalFaultNotice())
	fc.emit("INFO: " + telemetry.ExpiryNotice(5*time.Minute))

	for _, want := range []models.SensorFault{models.FaultThermal, models.FaultNone} {
		select {
		case got := <-lines:
			assert.Equal(t, telemetry.KindDiagnostic, got.Kind)
			assert.Equal(t, want, telemetry.FaultOf(got))
		case <-time.After(time.Second):
			t.Fatal("no line delivered")
		}
	}

	st, known := l.Status()
	assert.True(t, known)
	assert.Equal(t, models.ModeAuto, st.Mode)
}

func TestLink_ClosedStream(t *testing.T) {
	toSup, fromCtl := io.Pipe()
	l := New(duplex{Reader: toSup, Writer: io.Discard}, time.Second, time.Second, logger.Get(logger.ErrorLevel))

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()
	_ = fromCtl.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	_, err := l.Send(context.Background(), "STATUS")
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.False(t, l.Connected())
}

func TestLink_EndOfStreamClosesSubscribers(t *testing.T) {
	l, fc, _ := newPair(t, silent)
	lines, cancelSub := l.Subscribe(4)

	fc.emit(record)
	require.NoError(t, fc.out.Close())

	closed := make(chan struct{})
	go func() {
		for range lines {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("subscriber channel still open after the controller stream ended")
	}

	assert.NotPanics(t, cancelSub, "cancel after close")
	assert.False(t, l.Connected())

	late, cancelLate := l.Subscribe(1)
	_, ok := <-late
	assert.False(t, ok, "subscribing to a stopped link yields a closed channel")
	cancelLate()

	_, err := l.Send(context.Background(), "STATUS")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestLink_CancelStopsOnlyThatSubscriber(t *testing.T) {
	l, fc, _ := newPair(t, silent)
	a, cancelA := l.Subscribe(4)
	b, cancelB := l.Subscribe(4)
	defer cancelB()

	cancelA()
	cancelA()
	_, ok := <-a
	assert.False(t, ok)

	fc.emit(record)
	select {
	case line := <-b:
		assert.Equal(t, telemetry.KindRecord, line.Kind)
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber got nothing")
	}
}

func TestLink_LateReplyDuringNextSendIsSkipped(t *testing.T) {
	calls := 0
	var fc *fakeController
	l, fc, _ := newPair(t, func(line string) string {
		calls++
		if calls == 2 {
			// the STATUS answer lands only after PUMP_ON went out
			go func() {
				fc.emit("ACK: Pump is OFF, Mode: MANUAL")
				time.Sleep(30 * time.Millisecond)
				fc.emit("ACK: Pump turned ON, Mode: MANUAL")
			}()
		}
		return ""
	})

	_, err := l.Send(context.Background(), "STATUS")
	require.ErrorIs(t, err, ErrCommandTimeout)

	resp, err := l.Send(context.Background(), "PUMP_ON")
	require.NoError(t, err)
	assert.Equal(t, "ACK: Pump turned ON, Mode: MANUAL", resp)
}
