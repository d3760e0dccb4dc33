package writer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"

	"apiconform/config"
	"apiconform/internal/jsonpath"
	"apiconform/models"
)

// memFileReader serves a parquet object from memory.
type memFileReader struct{ *bytes.Reader }

func (m memFileReader) Create(string) (source.ParquetFile, error) { return m, nil }
func (m memFileReader) Open(string) (source.ParquetFile, error) {
	return memFileReader{bytes.NewReader(readerBytes(m.Reader))}, nil
}
func (m memFileReader) Write([]byte) (int, error) { return 0, nil }
func (m memFileReader) Close() error              { return nil }

func readerBytes(r *bytes.Reader) []byte {
	pos, _ := r.Seek(0, 1)
	_, _ = r.Seek(0, 0)
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(r)
	_, _ = r.Seek(pos, 0)
	return buf.Bytes()
}

func bookMessages() []models.Message {
	return []models.Message{
		models.NewMessage(jsonpath.MustParse(`{"id":-1,"method":"subscribe","result":{"channel":"book","data":[{"t":1000,"u":5}]}}`)),
		models.NewMessage(jsonpath.MustParse(`{"id":-1,"method":"subscribe","result":{"channel":"book.update","data":[{"t":1010,"u":6,"pu":5}]}}`)),
	}
}

func TestCaptureWriterLocal(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StorageConfig{Capture: config.CaptureConfig{Enabled: true, Dir: dir}}
	w, err := NewCaptureWriter(context.Background(), cfg, "run-1")
	if err != nil {
		t.Fatalf("NewCaptureWriter: %v", err)
	}

	w.Record("GB-003", bookMessages())
	w.Record("GB-003", bookMessages()[:1])
	w.Record("GB-001", nil)
	if got := w.Pending(); got != 3 {
		t.Fatalf("pending %d", got)
	}

	paths, err := w.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(paths) != 1 || w.Pending() != 0 {
		t.Fatalf("paths %v pending %d", paths, w.Pending())
	}
	if !strings.HasPrefix(paths[0], filepath.Join(dir, "run-1", "GB-003_")) {
		t.Fatalf("unexpected path %s", paths[0])
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PAR1")) {
		t.Fatalf("not a parquet file")
	}

	pr, err := reader.NewParquetReader(memFileReader{bytes.NewReader(data)}, new(captureRecord), 1)
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	defer pr.ReadStop()
	if n := pr.GetNumRows(); n != 3 {
		t.Fatalf("rows %d", n)
	}
	rows := make([]captureRecord, 3)
	if err := pr.Read(&rows); err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if rows[1].Channel != "book.update" || rows[1].UpdateID != 6 || rows[1].PrevUpdate != 5 || rows[2].Seq != 2 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].BatchID == "" || rows[0].BatchID != rows[2].BatchID {
		t.Fatalf("batch ids %q %q", rows[0].BatchID, rows[2].BatchID)
	}
}

func TestCaptureWriterNil(t *testing.T) {
	var w *CaptureWriter
	w.Record("GB-001", bookMessages())
	if w.Pending() != 0 {
		t.Fatal("nil writer must hold nothing")
	}
	if paths, err := w.Flush(context.Background()); err != nil || paths != nil {
		t.Fatalf("nil flush: %v %v", paths, err)
	}
}

func TestCaptureS3Key(t *testing.T) {
	w := &CaptureWriter{
		cfg:   config.StorageConfig{S3: config.S3Config{Prefix: "captures/uat"}},
		runID: "run/1",
		now:   func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) },
	}
	got := w.s3Key("GB-005", "abc")
	want := "captures/uat/date=2026-03-04/run=run_1/GB-005_abc.parquet"
	if got != want {
		t.Fatalf("key %q, want %q", got, want)
	}
}
