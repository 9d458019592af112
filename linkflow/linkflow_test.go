package linkflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"markestedt/linkgrab/queue"
)

type fakeWorker struct {
	alive bool
	text  string
	calls int
}

func (w *fakeWorker) Alive() bool { return w.alive }

func (w *fakeWorker) CopySelection(ctx context.Context) string {
	w.calls++
	return w.text
}

type fakeLocal struct {
	text  string
	calls int
}

func (l *fakeLocal) AttemptCopySelectedText() string {
	l.calls++
	return l.text
}

type fakeIndicator struct {
	flashes int
	titles  []string
}

func (i *fakeIndicator) Flash() { i.flashes++ }

func (i *fakeIndicator) Notify(title, message string) {
	i.titles = append(i.titles, title)
}

type failingQueue struct{}

func (failingQueue) AppendUnique(string) error { return errors.New("permission denied") }

func newQueue(t *testing.T) *queue.Store {
	t.Helper()
	q := queue.NewStore(filepath.Join(t.TempDir(), "download-list.txt"))
	if err := q.Ensure(); err != nil {
		t.Fatal(err)
	}
	return q
}

func TestExtractURL(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{text: "check this out https://youtu.be/abc123 thanks", want: "https://youtu.be/abc123", wantOK: true},
		{text: "HTTP://EXAMPLE.COM/Path", wantOK: false},
		{text: "see HTTPS://A.example/x or https://b.example/Y", want: "https://b.example/Y", wantOK: true},
		{text: "two http://a.example/1 http://b.example/2", want: "http://a.example/1", wantOK: true},
		{text: "line one\nhttps://www.pinterest.com/pin/123/\nline three", want: "https://www.pinterest.com/pin/123/", wantOK: true},
		{text: "no link here", wantOK: false},
		{text: "ftp://example.com/file", wantOK: false},
		{text: "https://", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ExtractURL(tt.text)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ExtractURL(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAddLinkFromSelectionQueuesFirstLink(t *testing.T) {
	q := newQueue(t)
	worker := &fakeWorker{alive: true, text: "check this out https://youtu.be/abc123 thanks"}
	ind := &fakeIndicator{}
	f := &Flow{Worker: worker, Local: &fakeLocal{}, Queue: q, Status: ind}

	if got := f.AddLinkFromSelection(context.Background()); got != Added {
		t.Fatalf("result = %v, want added", got)
	}

	raw, err := os.ReadFile(q.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "https://youtu.be/abc123\n" {
		t.Errorf("queue file = %q", raw)
	}
	if ind.flashes != 1 {
		t.Errorf("flashes = %d, want 1", ind.flashes)
	}
}

func TestAddLinkFromSelectionOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		worker *fakeWorker
		local  *fakeLocal
		queue  Queue
		want   Result
	}{
		{
			name:   "empty capture",
			worker: &fakeWorker{alive: true},
			local:  &fakeLocal{text: "https://never.example"},
			want:   NothingCaptured,
		},
		{
			name:   "no link",
			worker: &fakeWorker{alive: true, text: "just words"},
			want:   NoLink,
		},
		{
			name:   "save failure",
			worker: &fakeWorker{alive: true, text: "https://a.example"},
			queue:  failingQueue{},
			want:   SaveFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.queue
			if q == nil {
				q = newQueue(t)
			}
			local := tt.local
			if local == nil {
				local = &fakeLocal{}
			}
			ind := &fakeIndicator{}
			f := &Flow{Worker: tt.worker, Local: local, Queue: q, Status: ind}

			if got := f.AddLinkFromSelection(context.Background()); got != tt.want {
				t.Errorf("result = %v, want %v", got, tt.want)
			}
			if local.calls != 0 {
				t.Error("local capture used while worker alive")
			}
			if len(ind.titles) != 1 {
				t.Errorf("notifications = %v, want one", ind.titles)
			}
		})
	}
}

func TestAddLinkFromSelectionDuplicate(t *testing.T) {
	q := newQueue(t)
	if err := os.WriteFile(q.Path(), []byte("https://youtu.be/abc123\n"), 0644); err != nil {
		t.Fatal(err)
	}
	f := &Flow{Worker: &fakeWorker{alive: true, text: "see https://youtu.be/abc123"}, Queue: q}

	if got := f.AddLinkFromSelection(context.Background()); got != Duplicate {
		t.Fatalf("result = %v, want duplicate", got)
	}
	raw, _ := os.ReadFile(q.Path())
	if string(raw) != "https://youtu.be/abc123\n" {
		t.Errorf("queue file changed: %q", raw)
	}
}

func TestAddLinkFromSelectionFallsBackWhenWorkerDead(t *testing.T) {
	q := newQueue(t)
	worker := &fakeWorker{alive: false, text: "https://ignored.example"}
	local := &fakeLocal{text: "https://www.wildberries.ru/catalog/12345678/detail.aspx"}
	f := &Flow{Worker: worker, Local: local, Queue: q}

	if got := f.AddLinkFromSelection(context.Background()); got != Added {
		t.Fatalf("result = %v, want added", got)
	}
	if worker.calls != 0 || local.calls != 1 {
		t.Errorf("worker calls=%d local calls=%d, want 0 and 1", worker.calls, local.calls)
	}
	urls, _ := q.List()
	if len(urls) != 1 || urls[0] != local.text {
		t.Errorf("queue = %v", urls)
	}
}

func TestAddLinkFromSelectionWithoutAnyCapturer(t *testing.T) {
	f := &Flow{Queue: newQueue(t)}
	if got := f.AddLinkFromSelection(context.Background()); got != NothingCaptured {
		t.Errorf("result = %v, want nothing captured", got)
	}
}
