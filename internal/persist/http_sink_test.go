package persist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestHTTPSink_PostsGzippedSnapshot(t *testing.T) {
	t.Parallel()

	var (
		gotAuth     string
		gotEncoding string
		gotSnap     Snapshot
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotEncoding = r.Header.Get("Content-Encoding")

		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Errorf("gzip.NewReader: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, err := io.ReadAll(zr)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &gotSnap); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	sink := NewHTTPSink(ts.URL, "secret-token", ts.Client())
	snap := Snapshot{
		EntityID:   "drawing-1",
		EntityType: "drawing",
		Elements:   json.RawMessage(`[{"id":"el-1"}]`),
		AppState:   json.RawMessage(`{"zoom":1}`),
	}
	if err := sink.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotEncoding != "gzip" {
		t.Errorf("Content-Encoding = %q", gotEncoding)
	}
	if gotSnap.EntityID != "drawing-1" || gotSnap.EntityType != "drawing" {
		t.Errorf("unexpected snapshot: %+v", gotSnap)
	}
}

func TestHTTPSink_NonSuccessStatusIsError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	sink := NewHTTPSink(ts.URL, "", ts.Client())
	err := sink.Save(context.Background(), Snapshot{EntityID: "drawing-1"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestHTTPSink_NoAuthHeaderWithoutToken(t *testing.T) {
	t.Parallel()

	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer ts.Close()

	sink := NewHTTPSink(ts.URL, "", ts.Client())
	if err := sink.Save(context.Background(), Snapshot{EntityID: "e"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}
