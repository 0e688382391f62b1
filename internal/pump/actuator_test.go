package pump

import (
	"fmt"
	"testing"
)

type recordingLogger struct {
	msgs []string
}

func (l *recordingLogger) Infow(msg string, kv ...interface{}) {
	l.msgs = append(l.msgs, fmt.Sprint(append([]interface{}{msg}, kv...)...))
}

func TestRelay_SetIsIdempotentAndLevelFollowsWiring(t *testing.T) {
	high := NewRelay(false)
	low := NewRelay(true)

	if high.Get() || low.Get() {
		t.Fatalf("relays must start OFF")
	}
	if high.Level() || !low.Level() {
		t.Fatalf("OFF level wrong: active-high=%v active-low=%v", high.Level(), low.Level())
	}

	for i := 0; i < 2; i++ {
		high.Set(true)
		low.Set(true)
	}
	if !high.Get() || !low.Get() {
		t.Fatalf("expected ON after Set(true)")
	}
	if !high.Level() || low.Level() {
		t.Fatalf("ON level wrong: active-high=%v active-low=%v", high.Level(), low.Level())
	}
}

func TestObserved_CountsTransitionsOnly(t *testing.T) {
	log := &recordingLogger{}
	relay := NewRelay(false)
	o := NewObserved(relay, log)

	o.Set(false) // already off
	o.Set(true)
	o.Set(true)
	o.Set(false)

	if got := o.Switches(); got != 2 {
		t.Fatalf("switches = %d, want 2", got)
	}
	if len(log.msgs) != 2 {
		t.Fatalf("expected 2 log lines, got %v", log.msgs)
	}

	// reads always go to the wrapped actuator
	relay.Set(true)
	if !o.Get() {
		t.Fatalf("Observed.Get must reflect the wrapped actuator")
	}
}

func TestLabels(t *testing.T) {
	if Label(true) != "ON" || Label(false) != "OFF" {
		t.Fatalf("unexpected labels")
	}
	if Command(true) != "PUMP_ON" || Command(false) != "PUMP_OFF" {
		t.Fatalf("unexpected commands")
	}
}
