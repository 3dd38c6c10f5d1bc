package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/pdfsearch/cgo/tesseract"
	"github.com/custodia-labs/pdfsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pdfsearch/internal/adapters/driven/ocr"
	"github.com/custodia-labs/pdfsearch/internal/adapters/driven/pdf"
	"github.com/custodia-labs/pdfsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfsearch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/pdfsearch/internal/adapters/driving/cli"
	"github.com/custodia-labs/pdfsearch/internal/cache"
	"github.com/custodia-labs/pdfsearch/internal/config"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/core/services"
	"github.com/custodia-labs/pdfsearch/internal/logger"
	sysmem "github.com/custodia-labs/pdfsearch/internal/memory"
)

// build wires the services for one CLI invocation. The config file and
// .env are read from dataDir, or from ~/.pdfsearch when it is empty.
func build(dataDir string) (*cli.Services, func() error, error) {
	configDir := dataDir
	if configDir == "" {
		configDir = config.Default().DataDir
	}

	var store driven.ConfigStore
	fileStore, err := file.NewConfigStore(configDir)
	if err != nil {
		logger.Warn("config file unavailable, using defaults: %v", err)
		store = memory.NewConfigStore()
	} else {
		store = fileStore
	}

	cfg := config.Load(store, ".env", filepath.Join(configDir, ".env"))
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	logger.Debug("data directory: %s", cfg.DataDir)

	sqlStore, err := sqlite.NewStore(cfg.IndexDir())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	docStore := sqlStore.DocumentStore()

	ocrCache, disk := newOCRCache(cfg)
	engine := newOCREngine(cfg.OCR)
	probe := sysmem.SystemProbe{}

	search := services.NewSearchService(docStore, cfg.Cache.SearchTTL)
	ingest := services.NewIngestService(docStore, pdf.NewDecoder(), engine, services.IngestOptions{
		MaxWorkers:              cfg.Ingest.MaxWorkers,
		MaxFileBytes:            cfg.MaxFileBytes(),
		StreamingThresholdBytes: cfg.StreamingThresholdBytes(),
		WindowPages:             cfg.Ingest.WindowPages,
		OCRCache:                ocrCache,
		Guard:                   sysmem.NewGuard(probe, cfg.Memory.ThresholdPercent),
		OnIngested:              search.Invalidate,
	})
	documents := services.NewDocumentService(docStore, search.Invalidate)

	svc := &cli.Services{
		Config:      &cfg,
		ConfigStore: store,
		Ingest:      ingest,
		Search:      search,
		Documents:   documents,
		Cache:       ocrCache,
		OCREngine:   engine.Name(),
	}

	closeFn := func() error {
		var errs []error
		if disk != nil {
			errs = append(errs, disk.Close())
		}
		errs = append(errs, sqlStore.Close())
		return errors.Join(errs...)
	}
	return svc, closeFn, nil
}

// newOCRCache builds the memory tier and, unless disabled or unavailable,
// the disk tier of the OCR text cache.
func newOCRCache(cfg config.Config) (*cache.Tiered, *cache.DiskCache) {
	mem := cache.NewMemoryAwareLRU[string, string](cache.LRUConfig{
		MaxItems:         cfg.Cache.MemoryItems,
		MaxMemoryPercent: cfg.Cache.MaxMemoryPercent,
		MinFreeMB:        cfg.Cache.MinFreeMB,
		Probe:            sysmem.SystemProbe{},
	})
	if cfg.Cache.DiskDisabled {
		return cache.NewTiered(mem, nil), nil
	}

	disk, err := cache.OpenDiskCache(cache.DiskConfig{
		Dir:      cfg.CacheDir(),
		MaxBytes: int64(cfg.Cache.DiskMaxMB) * 1024 * 1024,
		MaxItems: cfg.Cache.DiskMaxItems,
	})
	if err != nil {
		logger.Warn("disk cache unavailable, using memory only: %v", err)
		return cache.NewTiered(mem, nil), nil
	}
	return cache.NewTiered(mem, disk), disk
}

// newOCREngine selects the configured engine, falling back to the
// subprocess engine and then to no OCR when the preferred one is missing.
func newOCREngine(cfg config.OCRConfig) driven.OCREngine {
	var engine driven.OCREngine
	switch cfg.Engine {
	case config.EngineNone:
		return ocr.Noop{}
	case config.EngineLibTesseract:
		if tesseract.Available() {
			engine = tesseract.New(cfg.Languages, cfg.MaxPixels, cfg.MaxDimension)
			break
		}
		logger.Warn("libtesseract support not compiled in, using the %s binary", cfg.Binary)
		fallthrough
	default:
		sub := ocr.NewTesseract(ocr.TesseractConfig{
			Binary:            cfg.Binary,
			Languages:         cfg.Languages,
			Timeout:           cfg.Timeout,
			MaxPixels:         cfg.MaxPixels,
			MaxDimension:      cfg.MaxDimension,
			DisablePreprocess: cfg.DisablePreprocess,
		})
		if !sub.Available() {
			logger.Warn("%s not found in PATH, images will not be OCRed", cfg.Binary)
			return ocr.Noop{}
		}
		engine = sub
	}
	return ocr.NewThrottled(engine, cfg.RatePerSecond, cfg.Burst)
}
