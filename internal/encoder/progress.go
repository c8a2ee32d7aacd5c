package encoder

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// progressParser turns ffmpeg "-progress" key=value output into ratios of
// encoded frames over input frames.
type progressParser struct {
	total int
	emit  func(float64)
}

func (p *progressParser) consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.line(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

func (p *progressParser) line(line string) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	switch key {
	case "frame":
		if p.total <= 0 {
			return
		}
		frames, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return
		}
		p.emit(float64(frames) / float64(p.total))
	case "progress":
		if value == "end" {
			p.emit(1)
		}
	}
}
