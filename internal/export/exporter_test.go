package export_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"imgconv/internal/blob"
	"imgconv/internal/export"
	"imgconv/internal/imaging"
	"imgconv/internal/logging"
	"imgconv/internal/queue"
	"imgconv/internal/services"
)

type savedFile struct {
	name    string
	payload blob.Blob
}

type recordingSaver struct {
	mu    sync.Mutex
	err   error
	saved []savedFile
}

func (r *recordingSaver) Save(_ context.Context, name string, payload blob.Blob) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.saved = append(r.saved, savedFile{name: name, payload: payload})
	return filepath.Join("/saved", name), nil
}

type exportNotifier struct {
	destinations []string
	files        []int
}

func (n *exportNotifier) NotifyBatchStarted(context.Context, int, string) error { return nil }
func (n *exportNotifier) NotifyBatchCompleted(context.Context, int, int, time.Duration) error {
	return nil
}
func (n *exportNotifier) NotifyError(context.Context, error, string) error { return nil }
func (n *exportNotifier) TestNotification(context.Context) error           { return nil }
func (n *exportNotifier) NotifyExported(_ context.Context, dest string, files int) error {
	n.destinations = append(n.destinations, dest)
	n.files = append(n.files, files)
	return nil
}

func doneItem(id int64, name, payload string) *queue.Item {
	out := blob.New([]byte(payload), blob.TypeWebP)
	return &queue.Item{ID: id, Name: name, DeclaredType: blob.TypeJPEG, Status: queue.StatusDone, Output: &out, Generation: 1}
}

func TestExportOneUsesPrimarySaver(t *testing.T) {
	primary := &recordingSaver{}
	fallback := &recordingSaver{}
	notifier := &exportNotifier{}
	exp := export.NewExporter(primary, fallback, notifier, logging.NewNop())

	result, err := exp.ExportOne(context.Background(), doneItem(1, "photo.JPEG", "webp-bytes"), imaging.FormatWebP)
	if err != nil {
		t.Fatalf("ExportOne: %v", err)
	}
	if result.Fallback || result.Files != 1 || result.Name != "photo.webp" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(primary.saved) != 1 || len(fallback.saved) != 0 {
		t.Fatalf("primary=%d fallback=%d", len(primary.saved), len(fallback.saved))
	}
	if got := primary.saved[0].payload.MIME(); got != blob.TypeWebP {
		t.Fatalf("primary saw mime %q", got)
	}
	if len(notifier.files) != 1 || notifier.files[0] != 1 {
		t.Fatalf("expected one export notification, got %v", notifier.files)
	}
}

func TestExportOneFallsBackAsBinary(t *testing.T) {
	primary := &recordingSaver{err: fmt.Errorf("%w: no dialog", export.ErrSaverUnavailable)}
	fallback := &recordingSaver{}
	exp := export.NewExporter(primary, fallback, nil, logging.NewNop())

	result, err := exp.ExportOne(context.Background(), doneItem(2, "cat.png", "avif-bytes"), imaging.FormatAVIF)
	if err != nil {
		t.Fatalf("ExportOne: %v", err)
	}
	if !result.Fallback || result.Name != "cat.avif" {
		t.Fatalf("unexpected result %+v", result)
	}
	saved := fallback.saved[0]
	if saved.payload.MIME() != blob.TypeBinary {
		t.Fatalf("fallback mime = %q, want %q", saved.payload.MIME(), blob.TypeBinary)
	}
	if string(saved.payload.Bytes()) != "avif-bytes" {
		t.Fatalf("fallback payload changed: %q", saved.payload.Bytes())
	}
}

func TestExportOneNilPrimaryUsesFallback(t *testing.T) {
	fallback := &recordingSaver{}
	exp := export.NewExporter(nil, fallback, nil, logging.NewNop())
	result, err := exp.ExportOne(context.Background(), doneItem(3, "a.jpg", "x"), imaging.FormatWebP)
	if err != nil || !result.Fallback {
		t.Fatalf("expected fallback save, got %+v err=%v", result, err)
	}
}

func TestExportOneSaveFailureDoesNotFallBack(t *testing.T) {
	primary := &recordingSaver{err: services.Wrap(services.ErrSave, "export", "write", "a.webp", errors.New("disk full"))}
	fallback := &recordingSaver{}
	exp := export.NewExporter(primary, fallback, nil, logging.NewNop())
	_, err := exp.ExportOne(context.Background(), doneItem(4, "a.jpg", "x"), imaging.FormatWebP)
	if !errors.Is(err, services.ErrSave) {
		t.Fatalf("expected ErrSave, got %v", err)
	}
	if len(fallback.saved) != 0 {
		t.Fatal("fallback should not be used for a failed save")
	}
}

func TestExportOneWithoutOutput(t *testing.T) {
	exp := export.NewExporter(&recordingSaver{}, nil, nil, logging.NewNop())
	item := &queue.Item{ID: 5, Name: "a.jpg", Status: queue.StatusReady}
	if _, err := exp.ExportOne(context.Background(), item, imaging.FormatWebP); !errors.Is(err, export.ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}

func TestExportAllBuildsArchive(t *testing.T) {
	primary := &recordingSaver{}
	notifier := &exportNotifier{}
	exp := export.NewExporter(primary, nil, notifier, logging.NewNop())
	items := []*queue.Item{
		doneItem(1, "one.jpg", "first"),
		{ID: 2, Name: "skipped.png", Status: queue.StatusError, ErrorMessage: "bad"},
		doneItem(3, "dir/two.png", "second"),
	}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

	result, err := exp.ExportAll(context.Background(), items, imaging.FormatWebP, now)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if result.Files != 2 || result.Name != "converted-20240102-030405.zip" {
		t.Fatalf("unexpected result %+v", result)
	}
	saved := primary.saved[0]
	if saved.payload.MIME() != blob.TypeZIP {
		t.Fatalf("archive mime = %q", saved.payload.MIME())
	}

	data := saved.payload.Bytes()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	want := map[string]string{"one.webp": "first", "two.webp": "second"}
	if len(reader.File) != len(want) {
		t.Fatalf("archive has %d entries", len(reader.File))
	}
	for i, f := range reader.File {
		if f.Method != zip.Store {
			t.Fatalf("entry %s uses method %d", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if want[f.Name] != string(body) {
			t.Fatalf("entry %d %s = %q", i, f.Name, body)
		}
	}
	if reader.File[0].Name != "one.webp" {
		t.Fatalf("entries out of order: %s first", reader.File[0].Name)
	}
	if len(notifier.files) != 1 || notifier.files[0] != 2 {
		t.Fatalf("unexpected notifications %v", notifier.files)
	}
}

func TestExportAllNothingToExport(t *testing.T) {
	primary := &recordingSaver{}
	exp := export.NewExporter(primary, nil, nil, logging.NewNop())
	items := []*queue.Item{{ID: 1, Name: "a.jpg", Status: queue.StatusReady}}
	_, err := exp.ExportAll(context.Background(), items, imaging.FormatWebP, time.Now())
	if !errors.Is(err, export.ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if len(primary.saved) != 0 {
		t.Fatal("nothing should be saved")
	}
}

func TestDirSaverSuffixesCollisions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	saver := export.NewDirSaver(dir, logging.NewNop())
	ctx := context.Background()

	var paths []string
	for i := 0; i < 3; i++ {
		path, err := saver.Save(ctx, "photo.webp", blob.New([]byte{byte(i)}, blob.TypeWebP))
		if err != nil {
			t.Fatalf("Save #%d: %v", i, err)
		}
		paths = append(paths, filepath.Base(path))
	}
	want := []string{"photo.webp", "photo (1).webp", "photo (2).webp"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("save %d went to %q, want %q", i, paths[i], want[i])
		}
		data, err := os.ReadFile(filepath.Join(dir, want[i]))
		if err != nil || len(data) != 1 || data[0] != byte(i) {
			t.Fatalf("file %s = %v err=%v", want[i], data, err)
		}
	}
	if health := saver.HealthCheck(ctx); !health.Ready {
		t.Fatalf("expected healthy saver, got %+v", health)
	}
}

func TestDirSaverUnconfigured(t *testing.T) {
	saver := export.NewDirSaver("", logging.NewNop())
	_, err := saver.Save(context.Background(), "a.webp", blob.New([]byte("x"), blob.TypeWebP))
	if !errors.Is(err, export.ErrSaverUnavailable) {
		t.Fatalf("expected ErrSaverUnavailable, got %v", err)
	}
}

func TestDownloadSaverRequiresExistingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	saver := export.NewDownloadSaver(missing, logging.NewNop())
	_, err := saver.Save(context.Background(), "a.webp", blob.New([]byte("x"), blob.TypeBinary))
	if !errors.Is(err, export.ErrSaverUnavailable) {
		t.Fatalf("expected ErrSaverUnavailable, got %v", err)
	}
	if _, statErr := os.Stat(missing); !os.IsNotExist(statErr) {
		t.Fatal("download saver must not create the directory")
	}
}

func TestExporterFallsBackToDownloads(t *testing.T) {
	downloads := t.TempDir()
	exp := export.NewExporter(
		export.NewDirSaver("", logging.NewNop()),
		export.NewDownloadSaver(downloads, logging.NewNop()),
		nil,
		logging.NewNop(),
	)
	result, err := exp.ExportOne(context.Background(), doneItem(1, "snap.jpg", "payload"), imaging.FormatWebP)
	if err != nil {
		t.Fatalf("ExportOne: %v", err)
	}
	if !result.Fallback || filepath.Dir(result.Path) != downloads {
		t.Fatalf("unexpected result %+v", result)
	}
	if data, err := os.ReadFile(result.Path); err != nil || string(data) != "payload" {
		t.Fatalf("saved %q err=%v", data, err)
	}
}
