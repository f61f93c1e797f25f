package lifecycle

import (
	"reflect"
	"testing"
)

func TestNextTransitions(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name        string
		state       State
		trigger     TriggerKind
		wantState   State
		wantActions []Action
	}{
		{"playing signal drains", StatePlaying, TriggerSignal, StateDraining, []Action{ActionRequestEOS, ActionNotifyUpstream}},
		{"playing stop-request drains", StatePlaying, TriggerStopRequest, StateDraining, []Action{ActionRequestEOS, ActionNotifyUpstream}},
		{"playing eos finishes directly", StatePlaying, TriggerEOS, StateDone, nil},
		{"playing error fails", StatePlaying, TriggerError, StateFailed, []Action{ActionStopGraph, ActionNotifyUpstream}},

		{"draining signal is a no-op", StateDraining, TriggerSignal, StateDraining, nil},
		{"draining stop-request is a no-op", StateDraining, TriggerStopRequest, StateDraining, nil},
		{"draining eos finishes", StateDraining, TriggerEOS, StateDone, nil},
		{"draining error fails", StateDraining, TriggerError, StateFailed, []Action{ActionStopGraph, ActionNotifyUpstream}},

		{"done absorbs signal", StateDone, TriggerSignal, StateDone, nil},
		{"done absorbs eos", StateDone, TriggerEOS, StateDone, nil},
		{"done absorbs error", StateDone, TriggerError, StateDone, nil},
		{"failed absorbs signal", StateFailed, TriggerSignal, StateFailed, nil},
		{"failed absorbs eos", StateFailed, TriggerEOS, StateFailed, nil},
		{"failed absorbs error", StateFailed, TriggerError, StateFailed, nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, actions := Next(tc.state, Trigger{Kind: tc.trigger})
			if got != tc.wantState {
				t.Errorf("state: got %v, want %v", got, tc.wantState)
			}
			if !reflect.DeepEqual(actions, tc.wantActions) {
				t.Errorf("actions: got %v, want %v", actions, tc.wantActions)
			}
		})
	}
}

func TestStateTerminal(t *testing.T) {
	t.Parallel()
	for _, s := range []State{StateIdle, StatePlaying, StateDraining} {
		if s.Terminal() {
			t.Errorf("%v must not be terminal", s)
		}
	}
	for _, s := range []State{StateDone, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%v must be terminal", s)
		}
	}
}
