package main

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tendant/stopmotion-pipeline/internal/config"
	"github.com/tendant/stopmotion-pipeline/internal/testsupport"
	"github.com/tendant/stopmotion-pipeline/internal/workflows"
	"github.com/tendant/stopmotion-pipeline/pkg/runner"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func useFakeEncoder(t *testing.T) *testsupport.FakeEncoder {
	t.Helper()
	fake := testsupport.NewFakeEncoder()
	fake.SetReady(false)
	original := newRunner
	newRunner = func(cfg runner.Config) (*runner.Runner, error) {
		cfg.Encoder = fake
		return runner.New(cfg)
	}
	t.Cleanup(func() { newRunner = original })
	return fake
}

func writePNGs(t *testing.T, dir string, sizes ...[2]int) []string {
	t.Helper()
	paths := make([]string, 0, len(sizes))
	for i, size := range sizes {
		img := testsupport.PNGImage(t, "", size[0], size[1])
		path := filepath.Join(dir, "frame"+string(rune('a'+i))+".png")
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func setupConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg := testsupport.NewConfig(t)
	return cfg, testsupport.WriteConfig(t, cfg)
}

func TestEncodeCommandWritesVideo(t *testing.T) {
	fake := useFakeEncoder(t)
	cfg, configPath := setupConfig(t)
	files := writePNGs(t, t.TempDir(), [2]int{40, 30}, [2]int{40, 30}, [2]int{20, 20})

	stdout, _, err := runCLI(t, append([]string{"encode", "--rate", "6"}, files...), configPath)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(stdout, "3 frames, 40x30 @ 6 fps") {
		t.Fatalf("stdout = %q", stdout)
	}

	matches, err := filepath.Glob(filepath.Join(cfg.Session.OutputDir, "stop-motion-*.mp4"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("outputs = %v, %v", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil || string(data) != "fake-mp4" {
		t.Fatalf("output = %q, %v", data, err)
	}
	if runs := fake.Runs(); len(runs) != 1 {
		t.Fatalf("runs = %d", len(runs))
	}
}

func TestEncodeCommandExplicitOutput(t *testing.T) {
	useFakeEncoder(t)
	_, configPath := setupConfig(t)
	files := writePNGs(t, t.TempDir(), [2]int{16, 16})
	dest := filepath.Join(t.TempDir(), "nested", "clip.mp4")

	if _, _, err := runCLI(t, append([]string{"encode", "-o", dest}, files...), configPath); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("stat output: %v", err)
	}
}

func TestEncodeCommandRejectsInvalidRate(t *testing.T) {
	fake := useFakeEncoder(t)
	_, configPath := setupConfig(t)
	files := writePNGs(t, t.TempDir(), [2]int{16, 16})

	_, _, err := runCLI(t, append([]string{"encode", "--rate", "2.5"}, files...), configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid frame rate") {
		t.Fatalf("err = %v", err)
	}
	if runs := fake.Runs(); len(runs) != 0 {
		t.Fatalf("runs = %d, want none", len(runs))
	}
}

func TestEncodeCommandRejectsUnsupportedFile(t *testing.T) {
	useFakeEncoder(t)
	_, configPath := setupConfig(t)
	dir := t.TempDir()
	files := writePNGs(t, dir, [2]int{16, 16})
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	_, _, err := runCLI(t, append([]string{"encode"}, append(files, notes)...), configPath)
	if err == nil || !strings.Contains(err.Error(), "notes.txt") {
		t.Fatalf("err = %v", err)
	}
}

func TestEncodeCommandReportsJobFailure(t *testing.T) {
	fake := useFakeEncoder(t)
	fake.RunErr = errors.New("encoder crashed")
	_, configPath := setupConfig(t)
	files := writePNGs(t, t.TempDir(), [2]int{16, 16})

	_, _, err := runCLI(t, append([]string{"encode"}, files...), configPath)
	if !errors.Is(err, workflows.ErrJobFailed) {
		t.Fatalf("err = %v, want ErrJobFailed", err)
	}
}

func TestEncodeCommandEncoderUnavailable(t *testing.T) {
	fake := useFakeEncoder(t)
	fake.LoadErr = errors.New("ffmpeg missing")
	_, configPath := setupConfig(t)
	files := writePNGs(t, t.TempDir(), [2]int{16, 16})

	_, _, err := runCLI(t, append([]string{"encode"}, files...), configPath)
	if err == nil || !strings.Contains(err.Error(), "load encoder") {
		t.Fatalf("err = %v", err)
	}
}

func TestInspectCommandRendersPlacement(t *testing.T) {
	dir := t.TempDir()
	files := writePNGs(t, dir, [2]int{101, 51}, [2]int{50, 50})
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	stdout, _, err := runCLI(t, append([]string{"inspect"}, append(files, notes)...), "")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{
		"Canvas: 100x50",
		"101x51",
		"50x50 at 25,0",
		"unsupported type",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestInspectCommandWithoutUsableFirstImage(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(broken, []byte("not a png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stdout, _, err := runCLI(t, []string{"inspect", broken}, "")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(stdout, "Canvas: unavailable") || !strings.Contains(stdout, "undecodable") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestReadImagesUsesExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.JPG")
	if err := os.WriteFile(path, testsupport.JPEG(t, 4, 4, color.White), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	images, err := readImages([]string{path})
	if err != nil {
		t.Fatalf("readImages: %v", err)
	}
	if images[0].MimeType != "image/jpeg" || images[0].Filename != "photo.JPG" {
		t.Fatalf("image = %+v", images[0])
	}
}
