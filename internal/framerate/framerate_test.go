package framerate

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"24", 24, true},
		{" 12 ", 12, true},
		{"1", 1, true},
		{"24.5", 0, false},
		{"-1", 0, false},
		{"0", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"2e1", 0, false},
		{"+5", 0, false},
		{"05", 0, false},
		{"12fps", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("Parse(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidRate) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidRate", tt.in, err)
		}
	}
}

func TestCellRejectsNonPositive(t *testing.T) {
	cell := NewCell(0)
	if cell.Get() != DefaultRate {
		t.Fatalf("default = %d, want %d", cell.Get(), DefaultRate)
	}
	for _, bad := range []int{0, -3} {
		if err := cell.Set(bad); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("Set(%d) error = %v", bad, err)
		}
	}
	if cell.Get() != DefaultRate {
		t.Fatalf("value changed to %d", cell.Get())
	}
}

func TestCellNotifiesOnChangeOnly(t *testing.T) {
	cell := NewCell(10)
	var seen []int
	cancel := cell.Subscribe(func(v int) { seen = append(seen, v) })
	_ = cell.Set(10)
	_ = cell.Set(24)
	cancel()
	_ = cell.Set(30)
	if len(seen) != 1 || seen[0] != 24 {
		t.Fatalf("notifications = %v, want [24]", seen)
	}
}

func TestValidatorKeepsConfirmedValueOnRejection(t *testing.T) {
	cell := NewCell(10)
	v := NewValidator(cell)
	defer v.Close()

	if rate, ok := v.Input("24"); !ok || rate != 24 {
		t.Fatalf("Input(24) = %d, %v", rate, ok)
	}
	for _, bad := range []string{"24.5", "-1", "0", "", "2e1"} {
		rate, ok := v.Input(bad)
		if ok || rate != 24 {
			t.Fatalf("Input(%q) = %d, %v; want 24, false", bad, rate, ok)
		}
		if v.Valid() {
			t.Fatalf("Input(%q) left field valid", bad)
		}
		if v.Text() != bad {
			t.Fatalf("Text = %q, want %q", v.Text(), bad)
		}
		if cell.Get() != 24 {
			t.Fatalf("cell = %d after %q", cell.Get(), bad)
		}
	}
}

func TestValidatorResyncsOnExternalChange(t *testing.T) {
	cell := NewCell(10)
	v := NewValidator(cell)
	defer v.Close()

	if v.Text() != "10" || !v.Valid() {
		t.Fatalf("initial text = %q valid=%v", v.Text(), v.Valid())
	}
	v.Input("abc")
	if err := cell.Set(15); err != nil {
		t.Fatal(err)
	}
	if v.Text() != "15" || !v.Valid() {
		t.Fatalf("after external set text = %q valid=%v", v.Text(), v.Valid())
	}
}
