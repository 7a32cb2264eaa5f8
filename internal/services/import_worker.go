package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codyseavey/vinyl-tracker/internal/logging"
	"github.com/codyseavey/vinyl-tracker/internal/metrics"
	"github.com/codyseavey/vinyl-tracker/internal/models"
)

const (
	// defaultImportBatchSize is the number of inbox files handled per run
	defaultImportBatchSize = 50
	defaultImportInterval  = time.Minute

	importExt = ".json"
	failedExt = ".failed"
)

// ImportBatch is the file format written by the external collector: loose
// marketplace observations plus release bundles looked up from the catalog.
type ImportBatch struct {
	Observations []models.PriceObservation `json:"observations"`
	Releases     []models.ReleaseBundle    `json:"releases"`
}

// FailedImport records an inbox file that could not be imported.
type FailedImport struct {
	File   string    `json:"file"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// ImportWorker periodically drains collector output from an inbox directory
// into the price store.
type ImportWorker struct {
	ingest       *IngestService
	inboxDir     string
	processedDir string
	interval     time.Duration
	batchSize    int
	log          zerolog.Logger
	mu           sync.RWMutex

	// Files requested ahead of the regular directory scan
	urgentQueue []string
	urgentMu    sync.Mutex
	trigger     chan struct{}

	// Stats (reset at midnight)
	filesImportedToday int
	lastImportTime     time.Time
	lastStatsDay       time.Time

	failed []FailedImport
}

type ImportStatus struct {
	LastImportTime     time.Time      `json:"last_import_time"`
	NextImportTime     time.Time      `json:"next_import_time"`
	FilesImportedToday int            `json:"files_imported_today"`
	BatchSize          int            `json:"batch_size"`
	QueueSize          int            `json:"queue_size"`
	Failed             []FailedImport `json:"failed,omitempty"`
}

func NewImportWorker(ingest *IngestService, inboxDir, processedDir string, interval time.Duration) *ImportWorker {
	if interval <= 0 {
		interval = defaultImportInterval
	}
	return &ImportWorker{
		ingest:       ingest,
		inboxDir:     inboxDir,
		processedDir: processedDir,
		interval:     interval,
		batchSize:    defaultImportBatchSize,
		log:          logging.Component("import_worker"),
		trigger:      make(chan struct{}, 1),
	}
}

// QueueFile puts an inbox file at the front of the next run and wakes the
// worker. It returns the file's 1-indexed queue position.
func (w *ImportWorker) QueueFile(name string) (int, error) {
	name = filepath.Base(name)
	if !strings.HasSuffix(name, importExt) {
		return 0, fmt.Errorf("%q is not a %s file", name, importExt)
	}

	w.urgentMu.Lock()
	pos := 0
	for i, queued := range w.urgentQueue {
		if queued == name {
			pos = i + 1
			break
		}
	}
	if pos == 0 {
		w.urgentQueue = append(w.urgentQueue, name)
		pos = len(w.urgentQueue)
		w.log.Info().Str("file", name).Int("queue_size", pos).Msg("queued import")
	}
	w.urgentMu.Unlock()

	w.RunNow()
	return pos, nil
}

// RunNow wakes the worker without waiting for the next tick.
func (w *ImportWorker) RunNow() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// GetQueueSize returns the current urgent queue size
func (w *ImportWorker) GetQueueSize() int {
	w.urgentMu.Lock()
	defer w.urgentMu.Unlock()
	return len(w.urgentQueue)
}

// resetDailyStatsIfNeeded resets filesImportedToday at midnight
func (w *ImportWorker) resetDailyStatsIfNeeded() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if w.lastStatsDay.Before(today) {
		if !w.lastStatsDay.IsZero() {
			w.log.Info().Int("previous_day", w.filesImportedToday).Msg("daily stats reset")
		}
		w.filesImportedToday = 0
		w.lastStatsDay = today
	}
}

// Start runs the worker until ctx is cancelled.
func (w *ImportWorker) Start(ctx context.Context) {
	w.log.Info().
		Str("inbox", w.inboxDir).
		Dur("interval", w.interval).
		Int("batch_size", w.batchSize).
		Msg("import worker started")

	if err := os.MkdirAll(w.inboxDir, 0755); err != nil {
		w.log.Error().Err(err).Msg("could not create inbox directory")
	}
	if err := os.MkdirAll(w.processedDir, 0755); err != nil {
		w.log.Error().Err(err).Msg("could not create processed directory")
	}

	// Run immediately on startup
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("import worker stopping")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.trigger:
			w.runOnce(ctx)
		}
	}
}

func (w *ImportWorker) runOnce(ctx context.Context) {
	imported, err := w.ProcessInbox(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("import run failed")
		return
	}
	if imported > 0 {
		w.log.Info().Int("files", imported).Msg("import run complete")
	}
}

// ProcessInbox imports up to batchSize inbox files: queued files first, then
// the remaining files in name order. A file that fails to decode or store is
// renamed with a .failed suffix and left in the inbox.
func (w *ImportWorker) ProcessInbox(ctx context.Context) (int, error) {
	w.resetDailyStatsIfNeeded()
	start := time.Now()

	files, err := w.pending()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}

	imported := 0
	for _, name := range files {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(w.inboxDir, name)
		res, err := w.ImportFile(ctx, path)
		if err != nil {
			w.markFailed(path, err)
			continue
		}

		if err := w.archive(path); err != nil {
			w.log.Warn().Err(err).Str("file", name).Msg("imported file could not be archived")
		}
		metrics.ImportFilesTotal.WithLabelValues("imported").Inc()
		w.log.Debug().
			Str("file", name).
			Int64("observations", res.Observations).
			Int("releases", res.Releases).
			Msg("file imported")
		imported++
	}

	w.mu.Lock()
	w.filesImportedToday += imported
	w.lastImportTime = time.Now()
	today := w.filesImportedToday
	w.mu.Unlock()

	metrics.ImportFilesToday.Set(float64(today))
	metrics.ImportBatchDuration.Observe(time.Since(start).Seconds())
	return imported, nil
}

// ImportFile decodes and stores one collector file.
func (w *ImportWorker) ImportFile(ctx context.Context, path string) (IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	batch, err := DecodeImportBatch(data)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return w.ingest.StoreBatch(ctx, batch.Observations, batch.Releases)
}

// DecodeImportBatch parses collector output.
func DecodeImportBatch(data []byte) (*ImportBatch, error) {
	var batch ImportBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("invalid import file: %w", err)
	}
	if len(batch.Observations) == 0 && len(batch.Releases) == 0 {
		return nil, errors.New("invalid import file: no observations or releases")
	}
	return &batch, nil
}

// pending lists the files for this run, queued files first.
func (w *ImportWorker) pending() ([]string, error) {
	entries, err := os.ReadDir(w.inboxDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	available := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), importExt) {
			continue
		}
		available[e.Name()] = true
		names = append(names, e.Name())
	}
	sort.Strings(names)

	w.urgentMu.Lock()
	urgent := w.urgentQueue
	w.urgentQueue = nil
	w.urgentMu.Unlock()

	var files []string
	seen := make(map[string]bool)
	for _, name := range append(urgent, names...) {
		if !available[name] || seen[name] {
			continue
		}
		seen[name] = true
		files = append(files, name)
		if len(files) == w.batchSize {
			break
		}
	}
	return files, nil
}

// archive moves an imported file to processedDir under a unique name.
func (w *ImportWorker) archive(path string) error {
	base := strings.TrimSuffix(filepath.Base(path), importExt)
	dest := filepath.Join(w.processedDir, base+"-"+uuid.New().String()+importExt)
	return os.Rename(path, dest)
}

func (w *ImportWorker) markFailed(path string, cause error) {
	name := filepath.Base(path)
	metrics.ImportFilesTotal.WithLabelValues("failed").Inc()
	w.log.Error().Err(cause).Str("file", name).Msg("import failed")

	if err := os.Rename(path, path+failedExt); err != nil {
		w.log.Warn().Err(err).Str("file", name).Msg("failed import could not be renamed")
	}

	w.mu.Lock()
	w.failed = append(w.failed, FailedImport{File: name, Reason: cause.Error(), At: time.Now()})
	w.mu.Unlock()
}

// GetStatus returns the current status
func (w *ImportWorker) GetStatus() ImportStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	failed := make([]FailedImport, len(w.failed))
	copy(failed, w.failed)

	return ImportStatus{
		LastImportTime:     w.lastImportTime,
		NextImportTime:     w.lastImportTime.Add(w.interval),
		FilesImportedToday: w.filesImportedToday,
		BatchSize:          w.batchSize,
		QueueSize:          w.GetQueueSize(),
		Failed:             failed,
	}
}

// ClearFailed empties the failed import list
func (w *ImportWorker) ClearFailed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failed = nil
}
