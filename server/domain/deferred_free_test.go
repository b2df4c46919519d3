package domain

import "testing"

func TestDeferredFree_SingleActiveTime(t *testing.T) {
	var d DeferredFree
	if d.FreeTime() != DontFree {
		t.Fatalf("FreeTime = %v, want %v", d.FreeTime(), DontFree)
	}

	d.FreeAt(FreeBeforeThinking)
	d.FreeAt(FreeAfterThinking)
	if d.FreeTime() != FreeAfterThinking {
		t.Errorf("FreeTime = %v, want %v", d.FreeTime(), FreeAfterThinking)
	}
	if d.Due(FreeBeforeThinking) {
		t.Error("Due(FreeBeforeThinking) = true, want false")
	}
	if !d.Due(FreeAfterThinking) {
		t.Error("Due(FreeAfterThinking) = false, want true")
	}

	d.FreeAt(FreeTime(42))
	if d.FreeTime() != FreeAfterThinking {
		t.Errorf("out of range FreeAt changed state to %v", d.FreeTime())
	}

	d.FreeAt(DontFree)
	if d.Due(DontFree) {
		t.Error("Due(DontFree) = true, want false")
	}
}
