package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Q != "What is your full name?" || req.Source != "en" || req.Target != "hi" {
			t.Errorf("request = %+v", req)
		}
		if req.Format != "text" {
			t.Errorf("format = %q, want text", req.Format)
		}
		w.Write([]byte(`{"data": {"translations": [{"translatedText": "आपका पूरा नाम क्या है?"}]}}`))
	}))
	defer srv.Close()

	c := New("k", srv.URL, time.Second)
	got, err := c.Translate(context.Background(), "What is your full name?", "en", "hi")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "आपका पूरा नाम क्या है?" {
		t.Errorf("translated = %q", got)
	}
}

func TestTranslateShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data": {"translations": [{"translatedText": "x"}]}}`))
	}))
	defer srv.Close()

	c := New("k", srv.URL, time.Second)

	t.Run("same_language", func(t *testing.T) {
		got, err := c.Translate(context.Background(), "hello", "en", "en")
		if err != nil {
			t.Fatalf("Translate: %v", err)
		}
		if got != "hello" {
			t.Errorf("got %q, want pass-through", got)
		}
	})

	t.Run("empty_text", func(t *testing.T) {
		got, err := c.Translate(context.Background(), "", "hi", "en")
		if err != nil {
			t.Fatalf("Translate: %v", err)
		}
		if got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})

	if n := calls.Load(); n != 0 {
		t.Errorf("server called %d times, want 0", n)
	}
}

func TestTranslateFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server_error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"empty_translations", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": {"translations": []}}`))
		}},
		{"garbage_body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New("k", srv.URL, time.Second)
			_, err := c.Translate(context.Background(), "text", "hi", "en")
			if !errors.Is(err, ErrTranslationFailed) {
				t.Fatalf("err = %v, want ErrTranslationFailed", err)
			}
		})
	}
}

func TestTranslateConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New("k", srv.URL, time.Second)
	_, err := c.Translate(context.Background(), "text", "bn", "en")
	if !errors.Is(err, ErrTranslationFailed) {
		t.Fatalf("err = %v, want ErrTranslationFailed", err)
	}
}
