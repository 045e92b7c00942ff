// internal/deployment/status_test.go
//
// Exhaustive transition-matrix test: only the three legal edges of the
// lifecycle graph are accepted, every other ordered pair is refused.

package deployment

import "testing"

func TestCanTransition_Matrix(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusLive, StatusFailed}
	legal := map[[2]Status]bool{
		{StatusPending, StatusProcessing}: true,
		{StatusPending, StatusFailed}:     true,
		{StatusProcessing, StatusLive}:    true,
		{StatusProcessing, StatusFailed}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Fatal("non-terminal state reported terminal")
	}
	if !StatusLive.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("terminal state not reported terminal")
	}
	if StatusLive.Mutable() || StatusFailed.Mutable() {
		t.Fatal("terminal state reported writable")
	}
}
