// Package writer archives collected stream batches as parquet, either on
// local disk or in S3.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"apiconform/config"
	"apiconform/logger"
	"apiconform/models"
)

// captureRecord defines the parquet schema for one captured frame.
type captureRecord struct {
	RunID      string `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Scenario   string `parquet:"name=scenario, type=BYTE_ARRAY, convertedtype=UTF8"`
	BatchID    string `parquet:"name=batch_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Seq        int64  `parquet:"name=seq, type=INT64"`
	ReceivedAt int64  `parquet:"name=received_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Method     string `parquet:"name=method, type=BYTE_ARRAY, convertedtype=UTF8"`
	Channel    string `parquet:"name=channel, type=BYTE_ARRAY, convertedtype=UTF8"`
	EventTime  int64  `parquet:"name=event_time, type=INT64"`
	UpdateID   int64  `parquet:"name=update_id, type=INT64"`
	PrevUpdate int64  `parquet:"name=prev_update_id, type=INT64"`
	Payload    string `parquet:"name=payload, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type memFileWriter struct{ buffer *bytes.Buffer }

func newMemFileWriter() *memFileWriter { return &memFileWriter{buffer: &bytes.Buffer{}} }

func (m *memFileWriter) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFileWriter) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFileWriter) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFileWriter) Read([]byte) (int, error)                  { return 0, nil }
func (m *memFileWriter) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFileWriter) Close() error                              { return nil }
func (m *memFileWriter) Bytes() []byte                             { return m.buffer.Bytes() }

// CaptureWriter buffers messages per scenario until Flush. A nil
// *CaptureWriter accepts Record calls and drops them.
type CaptureWriter struct {
	cfg      config.StorageConfig
	runID    string
	s3Client *s3.Client
	now      func() time.Time

	mu     sync.Mutex
	buffer map[string][]captureRecord
	log    *logger.Entry
}

// NewCaptureWriter builds a writer for one run. The S3 client is only
// created when storage.s3.enabled is set.
func NewCaptureWriter(ctx context.Context, cfg config.StorageConfig, runID string) (*CaptureWriter, error) {
	w := &CaptureWriter{
		cfg:    cfg,
		runID:  runID,
		now:    time.Now,
		buffer: make(map[string][]captureRecord),
		log:    logger.GetLogger().WithComponent("capture_writer").WithFields(logger.Fields{"run_id": runID}),
	}
	if !cfg.S3.Enabled {
		return w, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3.Region)}
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	w.s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.PathStyle
	})
	return w, nil
}

func int64At(m models.Message, p string) int64 {
	v, ok := m.Get(p)
	if !ok {
		return 0
	}
	n, _ := v.Int64()
	return n
}

// Record appends msgs to the scenario's pending batch.
func (w *CaptureWriter) Record(scenario string, msgs []models.Message) {
	if w == nil || len(msgs) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	seq := int64(len(w.buffer[scenario]))
	for _, m := range msgs {
		w.buffer[scenario] = append(w.buffer[scenario], captureRecord{
			RunID:      w.runID,
			Scenario:   scenario,
			Seq:        seq,
			ReceivedAt: m.ReceivedAt.UnixMilli(),
			Method:     m.Method(),
			Channel:    m.Channel(),
			EventTime:  int64At(m, "result.data.0.t"),
			UpdateID:   int64At(m, "result.data.0.u"),
			PrevUpdate: int64At(m, "result.data.0.pu"),
			Payload:    string(m.Raw),
		})
		seq++
	}
}

// Pending reports how many records wait for the next flush.
func (w *CaptureWriter) Pending() int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, recs := range w.buffer {
		n += len(recs)
	}
	return n
}

// Flush writes one parquet object per scenario and returns where they went.
func (w *CaptureWriter) Flush(ctx context.Context) ([]string, error) {
	if w == nil {
		return nil, nil
	}
	w.mu.Lock()
	buffers := w.buffer
	w.buffer = make(map[string][]captureRecord)
	w.mu.Unlock()

	scenarios := make([]string, 0, len(buffers))
	for s := range buffers {
		scenarios = append(scenarios, s)
	}
	sort.Strings(scenarios)

	var written []string
	for _, scenario := range scenarios {
		records := buffers[scenario]
		if len(records) == 0 {
			continue
		}
		batchID := uuid.New().String()
		for i := range records {
			records[i].BatchID = batchID
		}
		start := time.Now()
		data, err := createParquet(records)
		if err != nil {
			return written, fmt.Errorf("encode capture %s: %w", scenario, err)
		}

		var location string
		if w.s3Client != nil {
			location, err = w.upload(ctx, w.s3Key(scenario, batchID), data)
		} else {
			location, err = w.writeLocal(scenario, batchID, data)
		}
		if err != nil {
			w.log.WithError(err).WithFields(logger.Fields{"scenario": scenario}).Error("capture write failed")
			return written, err
		}
		written = append(written, location)
		logger.IncrementCaptureRows(len(records))
		w.log.WithFields(logger.Fields{
			"scenario":    scenario,
			"location":    location,
			"records":     len(records),
			"bytes":       len(data),
			"duration_ms": float64(time.Since(start).Nanoseconds()) / 1e6,
		}).Info("capture batch written")
	}
	return written, nil
}

func createParquet(records []captureRecord) ([]byte, error) {
	mw := newMemFileWriter()
	pw, err := writer.NewParquetWriter(mw, new(captureRecord), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range records {
		if err := pw.Write(r); err != nil {
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return mw.Bytes(), nil
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

func (w *CaptureWriter) writeLocal(scenario, batchID string, data []byte) (string, error) {
	dir := filepath.Join(w.cfg.Capture.Dir, safeName(w.runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("%s_%s.parquet", safeName(scenario), batchID))
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return "", fmt.Errorf("write capture file: %w", err)
	}
	return name, nil
}

// s3Key lays objects out as prefix/date=YYYY-MM-DD/run=<id>/<scenario>_<batch>.parquet.
func (w *CaptureWriter) s3Key(scenario, batchID string) string {
	ts := w.now().UTC()
	return path.Join(
		w.cfg.S3.Prefix,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), int(ts.Month()), ts.Day()),
		"run="+safeName(w.runID),
		fmt.Sprintf("%s_%s.parquet", safeName(scenario), batchID),
	)
}

func (w *CaptureWriter) upload(ctx context.Context, key string, data []byte) (string, error) {
	_, err := w.s3Client.PutObject(context.WithoutCancel(ctx), &s3.PutObjectInput{
		Bucket: aws.String(w.cfg.S3.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", w.cfg.S3.Bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", w.cfg.S3.Bucket, key), nil
}
