package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"imgconv/internal/blob"
	"imgconv/internal/config"
	"imgconv/internal/imaging"
	"imgconv/internal/queue"
	"imgconv/internal/testsupport"
	"imgconv/internal/workflow"
)

var fakeWebP = []byte("RIFF\x0c\x00\x00\x00WEBPVP8 fake")

type fakeConverter struct {
	mu       sync.Mutex
	calls    []string
	settings []imaging.Settings
	failures map[string]error
	hook     func(ctx context.Context, name string) error
}

func (f *fakeConverter) Convert(ctx context.Context, file blob.File, settings imaging.Settings) (blob.Blob, error) {
	f.mu.Lock()
	f.calls = append(f.calls, file.Name)
	f.settings = append(f.settings, settings)
	failure := f.failures[file.Name]
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, file.Name); err != nil {
			return blob.Blob{}, err
		}
	}
	if failure != nil {
		return blob.Blob{}, failure
	}
	return blob.New(append([]byte(nil), fakeWebP...), blob.TypeWebP), nil
}

func (f *fakeConverter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type stubNotifier struct {
	mu        sync.Mutex
	started   []int
	completed [][2]int
	errors    []string
	exported  int
}

func (s *stubNotifier) NotifyBatchStarted(_ context.Context, count int, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, count)
	return nil
}

func (s *stubNotifier) NotifyBatchCompleted(_ context.Context, converted, failed int, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, [2]int{converted, failed})
	return nil
}

func (s *stubNotifier) NotifyExported(context.Context, string, int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exported++
	return nil
}

func (s *stubNotifier) NotifyError(_ context.Context, _ error, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, label)
	return nil
}

func (s *stubNotifier) TestNotification(context.Context) error { return nil }

type countingObserver struct {
	mu    sync.Mutex
	calls int
	last  []*queue.Item
}

func (o *countingObserver) ItemsChanged(_ context.Context, items []*queue.Item) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.last = items
}

func (o *countingObserver) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

type harness struct {
	cfg       *config.Config
	store     *queue.Store
	converter *fakeConverter
	notifier  *stubNotifier
	observer  *countingObserver
	manager   *workflow.Manager
}

func newHarness(t *testing.T, opts ...workflow.ManagerOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		cfg:       cfg,
		store:     testsupport.MustOpenStore(t, cfg),
		converter: &fakeConverter{failures: map[string]error{}},
		notifier:  &stubNotifier{},
		observer:  &countingObserver{},
	}
	all := append([]workflow.ManagerOption{
		workflow.WithNotifier(h.notifier),
		workflow.WithObserver(h.observer),
	}, opts...)
	manager, err := workflow.NewManager(cfg, h.store, h.converter, all...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(manager.Close)
	h.manager = manager
	return h
}

func (h *harness) add(t *testing.T, names ...string) []*queue.Item {
	t.Helper()
	files := make([]blob.File, 0, len(names))
	for _, name := range names {
		files = append(files, blob.FromBytes(name, "", []byte("pixels of "+name)))
	}
	result, err := h.manager.Add(context.Background(), files)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(result.Rejected) != 0 {
		t.Fatalf("unexpected rejections %+v", result.Rejected)
	}
	return result.Added
}

func (h *harness) item(t *testing.T, id int64) *queue.Item {
	t.Helper()
	item, err := h.manager.Item(context.Background(), id)
	if err != nil {
		t.Fatalf("Item(%d): %v", id, err)
	}
	return item
}
