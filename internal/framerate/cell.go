package framerate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// DefaultRate is the rate a new session starts with.
const DefaultRate = 10

// ErrInvalidRate is returned for anything that is not a positive integer.
var ErrInvalidRate = errors.New("invalid frame rate")

// Parse accepts trimmed text that is the canonical base-10 form of a
// positive integer. "24" is valid; "24.5", "-1", "0", "", "2e1", "+5" and
// "05" are not.
func Parse(text string) (int, error) {
	trimmed := strings.TrimSpace(text)
	n, err := strconv.Atoi(trimmed)
	if err != nil || n <= 0 || strconv.Itoa(n) != trimmed {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, text)
	}
	return n, nil
}

// Cell holds the last confirmed frame rate. It only ever contains a
// positive value.
type Cell struct {
	mu    sync.Mutex
	value int
	subs  map[int]func(int)
	next  int
}

// NewCell creates a cell holding initial, or DefaultRate when initial is not
// positive.
func NewCell(initial int) *Cell {
	if initial <= 0 {
		initial = DefaultRate
	}
	return &Cell{value: initial, subs: make(map[int]func(int))}
}

// Get returns the confirmed rate.
func (c *Cell) Get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores rate and notifies subscribers when it changed.
func (c *Cell) Set(rate int) error {
	if rate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, rate)
	}
	c.mu.Lock()
	if c.value == rate {
		c.mu.Unlock()
		return nil
	}
	c.value = rate
	subs := make([]func(int), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(rate)
	}
	return nil
}

// Subscribe registers fn for changes. The returned func removes it.
func (c *Cell) Subscribe(fn func(int)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}
