package mqtt

import "testing"

func TestDispatch_ExactBeatsWildcard(t *testing.T) {
	r := NewRouter()
	var gotExact, gotWildcard bool
	r.Register("kaiser/god/esp/E1/actuator/+/command", func(string, []byte) { gotWildcard = true })
	r.Register("kaiser/god/esp/E1/actuator/5/command", func(string, []byte) { gotExact = true })

	if !r.Dispatch("kaiser/god/esp/E1/actuator/5/command", nil) {
		t.Fatalf("expected a match")
	}
	if !gotExact || gotWildcard {
		t.Fatalf("expected exact route to win, got exact=%v wildcard=%v", gotExact, gotWildcard)
	}
}

func TestDispatch_TerminalWildcard(t *testing.T) {
	r := NewRouter()
	var got string
	r.Register("kaiser/broadcast/#", func(topic string, _ []byte) { got = topic })

	if !r.Dispatch("kaiser/broadcast/emergency", nil) {
		t.Fatalf("expected # to match")
	}
	if got != "kaiser/broadcast/emergency" {
		t.Fatalf("handler got wrong topic: %s", got)
	}
}

func TestDispatch_NoMatch(t *testing.T) {
	r := NewRouter()
	r.Register("kaiser/god/esp/E1/config", func(string, []byte) {})
	if r.Dispatch("kaiser/god/esp/E2/config", nil) {
		t.Fatalf("expected no match for a different esp id")
	}
}

func TestDispatch_TieBreaksOnRegistrationOrder(t *testing.T) {
	r := NewRouter()
	var first bool
	r.Register("a/+/c", func(string, []byte) { first = true })
	r.Register("a/b/+", func(string, []byte) {})
	r.Dispatch("a/b/c", nil)
	if !first {
		t.Fatalf("expected the first-registered equally-specific pattern to win")
	}
}
