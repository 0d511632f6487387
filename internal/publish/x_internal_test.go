package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"rss2x/internal/config"
)

func testCredentials() config.Credentials {
	return config.Credentials{
		APIKey:            "key",
		APISecret:         "secret",
		AccessToken:       "token",
		AccessTokenSecret: "token-secret",
	}
}

func newTestXPublisher(t *testing.T, handler http.Handler) *XPublisher {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewXPublisher(testCredentials(), slog.Default())
	p.apiBaseURL = srv.URL
	p.mediaUploadURL = srv.URL + "/1.1/media/upload.json"

	return p
}

func TestXPublishSendsStatus(t *testing.T) {
	var gotBody tweetRequest

	p := newTestXPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") == "" {
			t.Error("expected OAuth1 authorization header")
		}

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	}))

	err := p.Publish(context.Background(), Post{
		Title: "Hello",
		Link:  "https://example.com/a",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBody.Text != "Hello\nhttps://example.com/a" {
		t.Fatalf("unexpected status text: %q", gotBody.Text)
	}
	if gotBody.Media != nil {
		t.Fatalf("expected no media, got %+v", gotBody.Media)
	}
}

func TestXPublishClassifiesAuthFailure(t *testing.T) {
	p := newTestXPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))

	err := p.Publish(context.Background(), Post{Link: "https://example.com/a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestXPublishClassifiesRateLimit(t *testing.T) {
	p := newTestXPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))

	err := p.Publish(context.Background(), Post{Link: "https://example.com/a"})

	var publishErr *Error
	if !errors.As(err, &publishErr) || publishErr.Kind != KindRateLimit {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestXPublishClassifiesServerErrorAsTransient(t *testing.T) {
	p := newTestXPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	err := p.Publish(context.Background(), Post{Link: "https://example.com/a"})

	var publishErr *Error
	if !errors.As(err, &publishErr) || publishErr.Kind != KindTransient {
		t.Fatalf("expected transient error, got %v", err)
	}
	if IsAuth(err) {
		t.Fatal("server error must not read as auth failure")
	}
}

func TestXPublishAttachesImage(t *testing.T) {
	var gotBody tweetRequest

	mux := http.NewServeMux()

	mux.HandleFunc("/image.jpg", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fake-image-bytes"))
	})
	mux.HandleFunc("/1.1/media/upload.json", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		_, _ = w.Write([]byte(`{"media_id_string":"42"}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewXPublisher(testCredentials(), slog.Default())
	p.apiBaseURL = srv.URL
	p.mediaUploadURL = srv.URL + "/1.1/media/upload.json"

	err := p.Publish(context.Background(), Post{
		Title:    "With image",
		Link:     "https://example.com/a",
		ImageURL: srv.URL + "/image.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBody.Media == nil || len(gotBody.Media.MediaIDs) != 1 || gotBody.Media.MediaIDs[0] != "42" {
		t.Fatalf("expected media id 42, got %+v", gotBody.Media)
	}
}

func TestXPublishPostsWithoutImageWhenUploadFails(t *testing.T) {
	var gotBody tweetRequest

	mux := http.NewServeMux()

	mux.HandleFunc("/image.jpg", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewXPublisher(testCredentials(), slog.Default())
	p.apiBaseURL = srv.URL
	p.mediaUploadURL = srv.URL + "/1.1/media/upload.json"

	err := p.Publish(context.Background(), Post{
		Title:    "No image after all",
		Link:     "https://example.com/a",
		ImageURL: srv.URL + "/image.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBody.Media != nil {
		t.Fatalf("expected no media after failed upload, got %+v", gotBody.Media)
	}
}
