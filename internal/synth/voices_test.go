package synth

import (
	"errors"
	"testing"
	"time"
)

func TestLookupVoice(t *testing.T) {
	v, err := LookupVoice("kore")
	if err != nil || v.Name != "Kore" {
		t.Errorf("LookupVoice(kore) = (%v, %v)", v, err)
	}
	if _, err := LookupVoice("Nobody"); !errors.Is(err, ErrUnknownVoice) {
		t.Errorf("Expected ErrUnknownVoice, got %v", err)
	}
	if len(Voices()) != 30 {
		t.Errorf("Expected 30 voices, got %d", len(Voices()))
	}
}

func TestSearchVoices(t *testing.T) {
	got := SearchVoices("puck")
	if len(got) == 0 || got[0].Name != "Puck" {
		t.Errorf("Expected Puck first, got %v", got)
	}
	if len(SearchVoices("")) != len(Voices()) {
		t.Error("empty query should list every voice")
	}
	if len(SearchVoices("zzzzqqq")) != 0 {
		t.Error("nonsense query should match nothing")
	}
}

func TestMockEstimateDuration(t *testing.T) {
	m := NewMock()
	tests := []struct {
		text string
		rate float64
		want time.Duration
	}{
		{"", 1, 0},
		{"one two three", 1, 1200 * time.Millisecond},
		{"one two three", 2, 600 * time.Millisecond},
		{"one two three", 0, 1200 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := m.EstimateDuration(tt.text, tt.rate); got != tt.want {
			t.Errorf("EstimateDuration(%q, %v) = %v, want %v", tt.text, tt.rate, got, tt.want)
		}
	}
}
