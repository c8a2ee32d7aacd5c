package framerate

import (
	"strconv"
	"sync"
)

// Validator owns the editable rate text. Only text that Parse accepts is
// confirmed into the cell; rejected text leaves the cell untouched and marks
// the field invalid.
type Validator struct {
	cell        *Cell
	unsubscribe func()

	mu    sync.Mutex
	text  string
	valid bool
}

// NewValidator binds a validator to cell, displaying its current value.
func NewValidator(cell *Cell) *Validator {
	v := &Validator{
		cell:  cell,
		text:  strconv.Itoa(cell.Get()),
		valid: true,
	}
	v.unsubscribe = cell.Subscribe(v.sync)
	return v
}

// sync replaces the displayed text when the confirmed value changes.
func (v *Validator) sync(rate int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.text = strconv.Itoa(rate)
	v.valid = true
}

// Input records text as displayed and confirms it when valid. It returns the
// confirmed rate after the call and whether text was accepted.
func (v *Validator) Input(text string) (int, bool) {
	rate, err := Parse(text)

	v.mu.Lock()
	v.text = text
	v.valid = err == nil
	v.mu.Unlock()

	if err != nil {
		return v.cell.Get(), false
	}
	// Set cannot fail for a parsed rate.
	_ = v.cell.Set(rate)
	return rate, true
}

// Text returns the displayed text.
func (v *Validator) Text() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.text
}

// Valid reports whether the displayed text is currently a valid rate.
func (v *Validator) Valid() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.valid
}

// Confirmed returns the authoritative rate.
func (v *Validator) Confirmed() int {
	return v.cell.Get()
}

// Close detaches the validator from its cell.
func (v *Validator) Close() {
	v.unsubscribe()
}
