package domain

import (
	"math/big"
	"testing"
)

func stateChange(id int64, state FundingStatus) StateChangedEvent {
	return StateChangedEvent{LeaseID: big.NewInt(id), NewState: state}
}

func TestActiveLeaseSet_AddThenRemove(t *testing.T) {
	set := NewActiveLeaseSet()

	set.Apply(stateChange(3, StatusActive))
	if !set.Contains("3") {
		t.Fatal("expected lease 3 to be active after activation event")
	}

	set.Apply(stateChange(3, StatusPending))
	if set.Contains("3") {
		t.Fatal("expected lease 3 to be removed after deactivation event")
	}
}

func TestActiveLeaseSet_IdempotentAdd(t *testing.T) {
	set := NewActiveLeaseSet()

	set.Apply(stateChange(5, StatusActive))
	set.Apply(stateChange(5, StatusActive))

	if got := set.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if !set.Contains("5") {
		t.Fatal("expected lease 5 to be active")
	}
}

func TestActiveLeaseSet_RemoveAbsentIsNoop(t *testing.T) {
	set := NewActiveLeaseSet()

	set.Apply(stateChange(7, StatusPending))

	if got := set.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
}

func TestActiveLeaseSet_TerminalStateRemoves(t *testing.T) {
	set := NewActiveLeaseSet()

	set.Apply(stateChange(2, StatusActive))
	set.Apply(StateChangedEvent{LeaseID: big.NewInt(2), NewState: FundingStatus(4)})

	if set.Contains("2") {
		t.Fatal("expected terminal state to remove lease 2")
	}
}

func TestActiveLeaseSet_IDsSorted(t *testing.T) {
	set := NewActiveLeaseSet()

	set.Apply(stateChange(10, StatusActive))
	set.Apply(stateChange(2, StatusActive))
	set.Apply(stateChange(1, StatusActive))

	want := []string{"1", "10", "2"} // lexicographic
	got := set.IDs()
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestActiveLeaseSet_NilLeaseIDIgnored(t *testing.T) {
	set := NewActiveLeaseSet()

	set.Apply(StateChangedEvent{LeaseID: nil, NewState: StatusActive})

	if got := set.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
}
