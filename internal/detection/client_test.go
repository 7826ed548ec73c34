package detection

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDetectForwardsRequest(t *testing.T) {
	var gotPath, gotThreshold, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotThreshold = r.URL.Query().Get("threshold")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detections":[
			{"label":"cat","confidence":0.92,"box":{"x":10,"y":20,"width":30,"height":40}},
			{"label":"dog","confidence":0.71,"box":{"x":1,"y":2,"width":3,"height":4}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	detections, err := client.Detect(context.Background(), []byte("image bytes"), "image/png", 0.5)
	if err != nil {
		t.Fatalf("expected detections, got error %v", err)
	}

	if gotPath != "/detect" {
		t.Errorf("expected POST to /detect, got %s", gotPath)
	}
	if gotThreshold != "0.5" {
		t.Errorf("expected threshold 0.5, got %q", gotThreshold)
	}
	if gotContentType != "image/png" {
		t.Errorf("expected content type image/png, got %q", gotContentType)
	}
	if string(gotBody) != "image bytes" {
		t.Errorf("expected raw image bytes forwarded, got %q", gotBody)
	}

	if len(detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(detections))
	}
	if detections[0].Label != "cat" || detections[0].Confidence != 0.92 {
		t.Errorf("unexpected first detection: %+v", detections[0])
	}
	if detections[0].Box.Width != 30 || detections[0].Box.Height != 40 {
		t.Errorf("unexpected bounding box: %+v", detections[0].Box)
	}
}

func TestDetectNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if _, err := client.Detect(context.Background(), []byte("x"), "image/png", 0.5); err == nil {
		t.Fatal("expected error for non-OK status")
	}
}

func TestDetectMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if _, err := client.Detect(context.Background(), []byte("x"), "image/png", 0.5); err == nil {
		t.Fatal("expected error for malformed response")
	}
}

func TestDetectContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Detect(ctx, []byte("x"), "image/png", 0.5); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
