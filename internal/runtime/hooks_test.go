package runtime

import (
	"errors"
	"testing"
	"time"
)

func TestLifecycleHooksMergeCallsBothInOrder(t *testing.T) {
	var calls []string

	a := LifecycleHooks{
		OnPhaseChange: func(from, to Phase) { calls = append(calls, "a:phase") },
		OnGoLive:      func(GoLiveInfo) { calls = append(calls, "a:golive") },
		OnFailed:      func(error) { calls = append(calls, "a:failed") },
		OnDrainError:  func(*Envelope, error) { calls = append(calls, "a:drain") },
		OnBindError:   func(string, error) { calls = append(calls, "a:bind") },
	}
	b := LifecycleHooks{
		OnPhaseChange: func(from, to Phase) { calls = append(calls, "b:phase") },
		OnGoLive:      func(GoLiveInfo) { calls = append(calls, "b:golive") },
		OnFailed:      func(error) { calls = append(calls, "b:failed") },
		OnDrainError:  func(*Envelope, error) { calls = append(calls, "b:drain") },
		OnBindError:   func(string, error) { calls = append(calls, "b:bind") },
	}

	merged := a.Merge(b)
	merged.OnPhaseChange(PhaseBuffering, PhaseLive)
	merged.OnGoLive(GoLiveInfo{Provider: "channel", At: time.Now()})
	merged.OnFailed(errors.New("boom"))
	merged.OnDrainError(&Envelope{MessageType: "Order"}, errors.New("boom"))
	merged.OnBindError("Order", errors.New("boom"))

	want := []string{
		"a:phase", "b:phase",
		"a:golive", "b:golive",
		"a:failed", "b:failed",
		"a:drain", "b:drain",
		"a:bind", "b:bind",
	}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, calls)
		}
	}
}

func TestLifecycleHooksMergeKeepsNilCallbacksNil(t *testing.T) {
	merged := LifecycleHooks{}.Merge(LifecycleHooks{})
	if merged.OnPhaseChange != nil || merged.OnGoLive != nil || merged.OnFailed != nil ||
		merged.OnDrainError != nil || merged.OnBindError != nil {
		t.Fatal("merging empty hooks must not synthesize callbacks")
	}
}

func TestLifecycleHooksMergeWithOneSide(t *testing.T) {
	called := false
	only := LifecycleHooks{OnFailed: func(error) { called = true }}

	merged := only.Merge(LifecycleHooks{})
	merged.OnFailed(errors.New("boom"))
	if !called {
		t.Fatal("expected the single hook to survive the merge")
	}

	called = false
	merged = LifecycleHooks{}.Merge(only)
	merged.OnFailed(errors.New("boom"))
	if !called {
		t.Fatal("expected the single hook to survive the merge")
	}
}

func TestLoggingHooksCoverEveryEvent(t *testing.T) {
	hooks := LoggingHooks(testLogger())
	if hooks.OnPhaseChange == nil || hooks.OnGoLive == nil || hooks.OnFailed == nil ||
		hooks.OnDrainError == nil || hooks.OnBindError == nil {
		t.Fatal("logging hooks must cover every lifecycle event")
	}

	// None of them may panic on minimal input.
	hooks.OnPhaseChange(PhaseBuffering, PhaseSelectingProvider)
	hooks.OnGoLive(GoLiveInfo{})
	hooks.OnFailed(errors.New("boom"))
	hooks.OnDrainError(&Envelope{}, errors.New("boom"))
	hooks.OnBindError("Order", errors.New("boom"))
}
