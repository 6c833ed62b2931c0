package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/parversion/internal/config"
	"github.com/OFFIS-RIT/parversion/pkg/render"
)

// fakeS3 serves the path-style subset of the S3 API the store uses.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	deletes int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/results-bucket/")
	switch {
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = string(body)
		f.types[key] = r.Header.Get("Content-Type")
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>results-bucket</Name><IsTruncated>false</IsTruncated>`)
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				b.WriteString("<Contents><Key>" + k + "</Key></Contents>")
			}
		}
		b.WriteString("</ListBucketResult>")
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(b.String()))
	case r.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}
		_, _ = w.Write([]byte(body))
	case r.Method == http.MethodPost && r.URL.Query().Has("delete"):
		f.deletes++
		for k := range f.objects {
			delete(f.objects, k)
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><DeleteResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></DeleteResult>`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) set(key, body string) {
	f.mu.Lock()
	f.objects[key] = body
	f.mu.Unlock()
}

func (f *fakeS3) contentType(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.types[key]
}

func (f *fakeS3) counts() (objects, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects), f.deletes
}

func newTestStore(t *testing.T) (*ResultStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewS3Client(context.Background(), config.S3Config{
		Bucket:    "results-bucket",
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatalf("NewS3Client() error = %v", err)
	}
	return NewResultStore(client, "results-bucket", ""), fake
}

func TestResultKey(t *testing.T) {
	tests := []struct {
		format render.Format
		want   string
	}{
		{render.FormatJSON, "results/job-1.json"},
		{render.FormatXML, "results/job-1.xml"},
		{render.FormatText, "results/job-1.txt"},
	}
	for _, tt := range tests {
		if got := ResultKey("job-1", tt.format); got != tt.want {
			t.Fatalf("ResultKey(%s) got = %q, want %q", tt.format, got, tt.want)
		}
		if !strings.HasPrefix(ResultKey("job-1", tt.format), JobPrefix("job-1")) {
			t.Fatalf("JobPrefix() does not cover %s", tt.format)
		}
	}
}

func TestResultStore_PutGetList(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "results/job-1.json", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if got := fake.contentType("results/job-1.json"); got != "application/json" {
		t.Fatalf("content type got = %q, want application/json", got)
	}

	fake.set("results/job-1.xml", "<document/>")
	got, err := store.Get(ctx, "results/job-1.xml")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "<document/>" {
		t.Fatalf("Get() got = %s", got)
	}

	keys, err := store.List(ctx, JobPrefix("job-1"))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("List() got = %v, want 2 keys", keys)
	}

	if _, err := store.Get(ctx, "results/missing.json"); err == nil {
		t.Fatal("Get() expected error for missing key")
	}
}

func TestResultStore_Delete(t *testing.T) {
	store, fake := newTestStore(t)
	fake.set("results/job-2.json", "{}")

	if err := store.Delete(context.Background(), JobPrefix("job-2")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if objects, deletes := fake.counts(); deletes != 1 || objects != 0 {
		t.Fatalf("Delete() left %d objects after %d calls", objects, deletes)
	}

	if err := store.Delete(context.Background(), JobPrefix("job-3")); err != nil {
		t.Fatalf("Delete() on empty prefix error = %v", err)
	}
	if _, deletes := fake.counts(); deletes != 1 {
		t.Fatalf("Delete() on empty prefix issued a request")
	}
}

func TestResultStore_DownloadLink(t *testing.T) {
	base, _ := newTestStore(t)
	store := NewResultStore(base.client, "results-bucket", "https://cdn.example.com/storage/")

	link, err := store.DownloadLink(context.Background(), "results/job-1.json")
	if err != nil {
		t.Fatalf("DownloadLink() error = %v", err)
	}
	if !strings.HasPrefix(link, "https://cdn.example.com/storage/results-bucket/results/job-1.json?") {
		t.Fatalf("DownloadLink() got = %s", link)
	}
	if !strings.Contains(link, "X-Amz-Signature=") {
		t.Fatalf("DownloadLink() not signed: %s", link)
	}

	bad := NewResultStore(base.client, "results-bucket", "not-a-url")
	if _, err := bad.DownloadLink(context.Background(), "k"); err == nil {
		t.Fatal("DownloadLink() expected error for invalid endpoint")
	}
}
