package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/OFFIS-RIT/parversion/pkg/common"
)

type stubLoader struct {
	name string
	err  error
}

func (s stubLoader) GetDocumentText(context.Context, Source) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.name), nil
}

func TestSource_Kind(t *testing.T) {
	tests := []struct {
		location string
		want     SourceKind
	}{
		{"page.html", SourceFile},
		{"/tmp/feed.xml", SourceFile},
		{"s3://bucket/page.html", SourceS3},
		{"HTTPS://example.com", SourceWeb},
		{"http://example.com/a", SourceWeb},
	}
	for _, tt := range tests {
		if got := (Source{Location: tt.location}).Kind(); got != tt.want {
			t.Fatalf("Kind(%q) got = %s, want %s", tt.location, got, tt.want)
		}
	}
}

func TestRouter_Dispatch(t *testing.T) {
	r := NewRouter(NewRouterParams{
		File: stubLoader{name: "file"},
		Web:  stubLoader{name: "web"},
	})

	for location, want := range map[string]string{
		"page.html":           "file",
		"https://example.com": "web",
	} {
		got, err := r.GetDocumentText(context.Background(), Source{Location: location})
		if err != nil {
			t.Fatalf("GetDocumentText(%q) error = %v", location, err)
		}
		if string(got) != want {
			t.Fatalf("GetDocumentText(%q) got = %s, want %s", location, got, want)
		}
	}

	if _, err := r.GetDocumentText(context.Background(), Source{Location: "s3://b/k"}); !errors.Is(err, common.ErrInputIO) {
		t.Fatalf("GetDocumentText() error = %v, want ErrInputIO", err)
	}
}

func TestRouter_WrapsLoadErrors(t *testing.T) {
	r := NewRouter(NewRouterParams{File: stubLoader{err: errors.New("permission denied")}})

	_, err := r.GetDocumentText(context.Background(), Source{Location: "page.html"})
	if !errors.Is(err, common.ErrInputIO) {
		t.Fatalf("GetDocumentText() error = %v, want ErrInputIO", err)
	}
}

func TestMemo_LoadsOnce(t *testing.T) {
	var m Memo
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.Do("k", func() ([]byte, error) {
				calls.Add(1)
				return []byte("v"), nil
			})
			if err != nil || string(got) != "v" {
				t.Errorf("Do() got = %s, %v", got, err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("loads got = %d, want 1", calls.Load())
	}
}

func TestMemo_ErrorsNotCached(t *testing.T) {
	var m Memo
	calls := 0
	fn := func() ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("timeout")
		}
		return []byte("v"), nil
	}

	if _, err := m.Do("k", fn); err == nil {
		t.Fatal("Do() expected error")
	}
	got, err := m.Do("k", fn)
	if err != nil || string(got) != "v" {
		t.Fatalf("Do() got = %s, %v", got, err)
	}
}
