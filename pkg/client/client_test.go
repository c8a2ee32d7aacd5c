package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tendant/stopmotion-pipeline/internal/handlers"
	"github.com/tendant/stopmotion-pipeline/internal/testsupport"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
	"github.com/tendant/stopmotion-pipeline/pkg/runner"
)

func newTestServer(t *testing.T) (*Client, *testsupport.FakeEncoder) {
	t.Helper()
	fake := testsupport.NewFakeEncoder()
	fake.SetReady(false)
	r, err := runner.New(runner.Config{Encoder: fake})
	if err != nil {
		t.Fatalf("runner.New: %v", err)
	}
	srv := httptest.NewServer(handlers.NewAPIHandler(r, nil, nil).Routes())
	t.Cleanup(func() {
		srv.Close()
		_ = r.Close()
	})
	return NewWithHTTPClient(srv.URL, srv.Client()), fake
}

func TestClientSessionFlow(t *testing.T) {
	c, _ := newTestServer(t)
	ctx := context.Background()

	if err := c.LoadEncoder(ctx); err != nil {
		t.Fatalf("LoadEncoder: %v", err)
	}
	entries, err := c.Upload(ctx, []pipeline.Image{
		testsupport.PNGImage(t, "one.png", 24, 16),
		testsupport.PNGImage(t, "two.png", 24, 16),
		testsupport.PNGImage(t, "three.png", 24, 16),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}

	state, err := c.Reorder(ctx, []string{entries[2].ID, entries[1].ID, entries[0].ID})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if state.Entries[0].Filename != "three.png" {
		t.Fatalf("first = %q", state.Entries[0].Filename)
	}

	if err := c.Remove(ctx, entries[1].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if step, err := c.Next(ctx); err != nil || step != "finalize" {
		t.Fatalf("Next = %q, %v", step, err)
	}

	rate, err := c.SetFrameRate(ctx, "8")
	if err != nil || !rate.Valid || rate.Confirmed != 8 {
		t.Fatalf("SetFrameRate = %+v, %v", rate, err)
	}
	preview, err := c.TogglePreview(ctx)
	if err != nil || !preview.Playing || preview.Length != 2 {
		t.Fatalf("TogglePreview = %+v, %v", preview, err)
	}

	resp, err := c.Process(ctx, pipeline.ProcessRequest{Job: pipeline.JobEncode})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	status, err := c.WaitForRun(waitCtx, resp.RunID, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForRun: %v", err)
	}
	if status.State != "succeeded" {
		t.Fatalf("run = %+v", status)
	}

	data, filename, err := c.DownloadArtifact(ctx)
	if err != nil {
		t.Fatalf("DownloadArtifact: %v", err)
	}
	if string(data) != "fake-mp4" {
		t.Fatalf("artifact = %q", data)
	}
	session, err := c.Session(ctx)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if session.Job == nil || session.Job.Artifact == nil || filename != session.Job.Artifact.Filename {
		t.Fatalf("filename = %q job = %+v", filename, session.Job)
	}

	if step, err := c.Back(ctx); err != nil || step != "arrange" {
		t.Fatalf("Back = %q, %v", step, err)
	}
}

func TestClientReturnsAPIError(t *testing.T) {
	c, _ := newTestServer(t)
	ctx := context.Background()

	_, err := c.Upload(ctx, []pipeline.Image{{Filename: "notes.txt", MimeType: "text/plain", Data: []byte("hi")}})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnsupportedMediaType || apiErr.Message == "" {
		t.Fatalf("apiErr = %+v", apiErr)
	}

	if _, err := c.RunStatus(ctx, "nope"); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("RunStatus err = %v", err)
	}
	if _, _, err := c.DownloadArtifact(ctx); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("DownloadArtifact err = %v", err)
	}
}

func TestClientLoadEncoderFailure(t *testing.T) {
	c, fake := newTestServer(t)
	fake.LoadErr = errors.New("ffmpeg not found")

	err := c.LoadEncoder(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
}
