// Package importer loads measurements into the store, either from a CSV export
// of the monitoring device or from a synthetic generator.
package importer

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/internal/nilm/metrics"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
	"github.com/kart-io/nilm-chat/pkg/infra/pool"
	importopts "github.com/kart-io/nilm-chat/pkg/options/importer"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

// releaseTimeout bounds the wait for in-flight batches on Close.
const releaseTimeout = 30 * time.Second

// Report summarises one ingestion run.
type Report struct {
	Read     int `json:"read"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	// Failed counts rows of batches the store rejected.
	Failed int `json:"failed"`
}

// Importer writes measurements in batches through a bounded worker pool.
type Importer struct {
	measurements store.MeasurementStore
	pool         *pool.Pool
	batchSize    int
	metrics      *metrics.ChatMetrics
}

// New creates an Importer. Close must be called to release the workers.
func New(measurements store.MeasurementStore, opts *importopts.Options, m *metrics.ChatMetrics) (*Importer, error) {
	if opts == nil {
		opts = importopts.NewOptions()
	}
	p, err := pool.NewPool("measurement-import", pool.ImportPool, pool.ImportPoolConfig(opts.Workers))
	if err != nil {
		return nil, err
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = importopts.NewOptions().BatchSize
	}
	return &Importer{
		measurements: measurements,
		pool:         p,
		batchSize:    batchSize,
		metrics:      m,
	}, nil
}

// Close waits for running batches and releases the pool.
func (im *Importer) Close() error {
	return im.pool.ReleaseTimeout(releaseTimeout)
}

// batchWriter collects rows and hands full batches to the pool.
type batchWriter struct {
	im      *Importer
	ctx     context.Context
	pending []*model.ElectricalData

	wg       sync.WaitGroup
	mu       sync.Mutex
	imported int
	failed   int
	firstErr error
}

func (im *Importer) newBatchWriter(ctx context.Context) *batchWriter {
	return &batchWriter{
		im:      im,
		ctx:     ctx,
		pending: make([]*model.ElectricalData, 0, im.batchSize),
	}
}

// Add buffers one row, flushing when the batch is full.
func (w *batchWriter) Add(row *model.ElectricalData) error {
	w.pending = append(w.pending, row)
	if len(w.pending) < w.im.batchSize {
		return nil
	}
	return w.flush()
}

func (w *batchWriter) flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	batch := w.pending
	w.pending = make([]*model.ElectricalData, 0, w.im.batchSize)

	w.wg.Add(1)
	err := w.im.pool.Submit(func() {
		defer w.wg.Done()
		w.write(batch)
	})
	if err != nil {
		w.wg.Done()
		w.record(0, len(batch), err)
		return errors.ErrImportFailed.WithCause(err)
	}
	return nil
}

func (w *batchWriter) write(batch []*model.ElectricalData) {
	if err := w.ctx.Err(); err != nil {
		w.record(0, len(batch), err)
		return
	}
	if err := w.im.measurements.CreateBatch(w.ctx, batch); err != nil {
		logger.Errorw("Measurement batch failed", "rows", len(batch), "error", err.Error())
		w.record(0, len(batch), err)
		return
	}
	w.record(len(batch), 0, nil)
}

func (w *batchWriter) record(imported, failed int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.imported += imported
	w.failed += failed
	if err != nil && w.firstErr == nil {
		w.firstErr = err
	}
}

// Close flushes the remainder and waits for every batch.
func (w *batchWriter) Close() (imported, failed int, err error) {
	flushErr := w.flush()
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if flushErr != nil {
		return w.imported, w.failed, flushErr
	}
	if w.imported == 0 && w.firstErr != nil {
		return w.imported, w.failed, errors.ErrImportFailed.WithCause(w.firstErr)
	}
	return w.imported, w.failed, nil
}

func (im *Importer) finish(report *Report) {
	im.metrics.RecordImport(report.Imported, report.Skipped+report.Failed)
	logger.Infow("Measurement import finished",
		"read", report.Read,
		"imported", report.Imported,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
}
