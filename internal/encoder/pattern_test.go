package encoder

import "testing"

func TestPatternGlob(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"img%05d.png", "img[0-9][0-9][0-9][0-9][0-9].png"},
		{"frame%3d.jpg", "frame[0-9][0-9][0-9].jpg"},
		{"frame%d.png", "frame*.png"},
		{"still.png", "still.png"},
	}
	for _, tt := range tests {
		if got := PatternGlob(tt.pattern); got != tt.want {
			t.Errorf("PatternGlob(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestFrameName(t *testing.T) {
	if got := FrameName("img%05d.png", 0); got != "img00000.png" {
		t.Fatalf("FrameName(0) = %q", got)
	}
	if got := FrameName("img%05d.png", 123); got != "img00123.png" {
		t.Fatalf("FrameName(123) = %q", got)
	}
}

func TestArgHelpers(t *testing.T) {
	args := []string{"-framerate", "10", "-i", "img%05d.png", "-crf", "28", "output-1.mp4"}
	if got := InputPattern(args); got != "img%05d.png" {
		t.Fatalf("InputPattern = %q", got)
	}
	if got := OutputName(args); got != "output-1.mp4" {
		t.Fatalf("OutputName = %q", got)
	}
	if InputPattern([]string{"-i"}) != "" || OutputName(nil) != "" {
		t.Fatal("expected empty results for degenerate args")
	}
}

func TestProgressParser(t *testing.T) {
	var got []float64
	p := &progressParser{total: 4, emit: func(r float64) { got = append(got, r) }}
	for _, line := range []string{"frame=1", "bitrate=N/A", "frame=x", "garbage", "frame=4", "progress=continue", "progress=end"} {
		p.line(line)
	}
	want := []float64{0.25, 1, 1}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	got = nil
	unknown := &progressParser{emit: func(r float64) { got = append(got, r) }}
	unknown.line("frame=3")
	unknown.line("progress=end")
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("unknown total emitted %v", got)
	}
}
