package browser

import "testing"

func TestOptions(t *testing.T) {
	headful := Options(false)
	headless := Options(true)
	if len(headless) != len(headful)+1 {
		t.Errorf("headless adds %d options, want 1", len(headless)-len(headful))
	}
	if len(headful) <= 10 {
		t.Errorf("expected the default allocator options plus stealth flags, got %d", len(headful))
	}
}
