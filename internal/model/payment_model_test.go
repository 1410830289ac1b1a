package model

import "testing"

func TestTransition(t *testing.T) {
	tests := []struct {
		name     string
		current  PaymentStatus
		incoming PaymentStatus
		want     PaymentStatus
		applied  bool
	}{
		{"pending to paid", PaymentPending, PaymentPaid, PaymentPaid, true},
		{"pending to failed", PaymentPending, PaymentFailed, PaymentFailed, true},
		{"pending to awaiting", PaymentPending, PaymentAwaiting, PaymentAwaiting, true},
		{"awaiting to paid", PaymentAwaiting, PaymentPaid, PaymentPaid, true},
		{"awaiting to expired", PaymentAwaiting, PaymentExpired, PaymentExpired, true},
		{"pending to expired rejected", PaymentPending, PaymentExpired, PaymentPending, false},
		{"awaiting to failed rejected", PaymentAwaiting, PaymentFailed, PaymentAwaiting, false},
		{"paid never regresses to failed", PaymentPaid, PaymentFailed, PaymentPaid, false},
		{"paid never regresses to pending", PaymentPaid, PaymentPending, PaymentPaid, false},
		{"failed stays failed", PaymentFailed, PaymentPaid, PaymentFailed, false},
		{"expired stays expired", PaymentExpired, PaymentPaid, PaymentExpired, false},
		{"duplicate paid is a no-op", PaymentPaid, PaymentPaid, PaymentPaid, false},
		{"duplicate awaiting is a no-op", PaymentAwaiting, PaymentAwaiting, PaymentAwaiting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, applied := Transition(tt.current, tt.incoming)
			if got != tt.want || applied != tt.applied {
				t.Errorf("Transition(%s, %s) = (%s, %v), want (%s, %v)",
					tt.current, tt.incoming, got, applied, tt.want, tt.applied)
			}
		})
	}
}

// TransitionSources must agree with Transition: every listed source accepts
// the target, and no unlisted non-terminal status does.
func TestTransitionSourcesMatchesTransition(t *testing.T) {
	all := []PaymentStatus{PaymentPending, PaymentAwaiting, PaymentPaid, PaymentFailed, PaymentExpired}
	targets := []PaymentStatus{PaymentAwaiting, PaymentPaid, PaymentFailed, PaymentExpired}

	for _, next := range targets {
		sources := TransitionSources(next)
		listed := map[PaymentStatus]bool{}
		for _, s := range sources {
			listed[s] = true
			if _, ok := Transition(s, next); !ok {
				t.Errorf("source %s listed for %s but Transition rejects it", s, next)
			}
		}
		for _, s := range all {
			if listed[s] {
				continue
			}
			if _, ok := Transition(s, next); ok {
				t.Errorf("Transition allows %s -> %s but TransitionSources omits it", s, next)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []PaymentStatus{PaymentPaid, PaymentFailed, PaymentExpired} {
		if !IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []PaymentStatus{PaymentPending, PaymentAwaiting} {
		if IsTerminal(s) {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}

func TestValidPaymentType(t *testing.T) {
	for _, pt := range []PaymentType{PaymentTypeCredit, PaymentTypeATM, PaymentTypeCVS, PaymentTypeBarcode} {
		if !ValidPaymentType(pt) {
			t.Errorf("expected %s to be valid", pt)
		}
	}
	if ValidPaymentType("PAYPAL") {
		t.Error("unsupported method accepted")
	}
}
