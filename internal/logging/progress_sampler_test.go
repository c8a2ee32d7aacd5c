package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{10, false},
		{24.9, false},
		{25, true},
		{30, false},
		{80, true},
		{100, true},
		{100, false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, "encoding"); got != step.want {
			t.Errorf("step %d: ShouldLog(%v) = %v, want %v", i, step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerStageChangeResets(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(50, "writing_frames") {
		t.Fatal("first event should log")
	}
	if s.ShouldLog(51, "writing_frames") {
		t.Fatal("same bucket should not log")
	}
	if !s.ShouldLog(10, "encoding") {
		t.Fatal("stage change should log")
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "stage") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestNewProgressSamplerDefaults(t *testing.T) {
	s := NewProgressSampler(0)
	if s.bucketSize != 5 {
		t.Errorf("bucketSize = %v, want 5", s.bucketSize)
	}
	if s.lastBucket != -1 {
		t.Errorf("lastBucket = %d, want -1", s.lastBucket)
	}
}
