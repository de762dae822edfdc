// Package ingest loads sales export files into the Saida and ItensSaida tables.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/metrics"
)

// Result summarises one committed file.
type Result struct {
	LoadID      string
	File        string
	PlatformID  uint
	Separator   string
	Rows        int
	Headers     int
	Lines       int
	Provisioned int
	Duration    time.Duration
}

// Ingestor runs the per-file pipeline: platform id, decode, parse, then headers and
// lines inside one transaction.
type Ingestor struct {
	db       *gorm.DB
	cfg      config.LoaderConfig
	contract FilenameContract
	headers  *HeaderLoader
	lines    *LineLoader
	log      *zap.Logger
	metrics  *metrics.Registry

	commit func(tx *gorm.DB) error
}

// NewIngestor wires the loaders. m may be nil.
func NewIngestor(db *gorm.DB, cfg config.LoaderConfig, contract FilenameContract, log *zap.Logger, m *metrics.Registry) *Ingestor {
	if log == nil {
		log = zap.NewNop()
	}
	resolver := NewResolver(cfg.JunctionPolicy, cfg.ReferenceCacheTTL, log)
	return &Ingestor{
		db:       db,
		cfg:      cfg,
		contract: contract,
		headers:  NewHeaderLoader(cfg),
		lines:    NewLineLoader(resolver, cfg.DefaultQuantity),
		log:      log,
		metrics:  m,
		commit:   func(tx *gorm.DB) error { return tx.Commit().Error },
	}
}

// Ingest loads one file. On any error nothing from the file is persisted.
func (in *Ingestor) Ingest(ctx context.Context, name string, content []byte) (Result, error) {
	start := time.Now()
	res := Result{LoadID: uuid.NewString(), File: name}
	log := in.log.With(zap.String("load_id", res.LoadID), zap.String("file", name))

	res, err := in.load(ctx, res, content, log)
	res.Duration = time.Since(start)
	if err != nil {
		in.metrics.ObserveFailure(apperrors.Kind(err))
		return res, err
	}

	in.metrics.ObserveLoad(res.Headers, res.Lines, res.Provisioned, res.Duration.Seconds())
	log.Info("File loaded",
		zap.Uint("platform_id", res.PlatformID),
		zap.String("separator", res.Separator),
		zap.Int("rows", res.Rows),
		zap.Int("headers", res.Headers),
		zap.Int("lines", res.Lines),
		zap.Int("provisioned", res.Provisioned),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (in *Ingestor) load(ctx context.Context, res Result, content []byte, log *zap.Logger) (Result, error) {
	platformID, err := PlatformID(res.File, in.contract)
	if err != nil {
		return res, err
	}
	res.PlatformID = platformID

	content, err = Decode(content, in.cfg.Encoding)
	if err != nil {
		return res, err
	}
	sep := DetectSeparator(content)
	res.Separator = string(sep)

	rows, err := ParseRows(content, sep)
	if err != nil {
		return res, err
	}
	res.Rows = len(rows)
	log.Debug("File parsed", zap.Int("rows", len(rows)), zap.String("separator", res.Separator))

	tx := in.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return res, &apperrors.ConnectionError{Op: "begin", Err: tx.Error}
	}

	hr, err := in.headers.Load(ctx, tx, rows, platformID)
	if err != nil {
		return res, rollback(tx, err, log)
	}
	lr, err := in.lines.Load(ctx, tx, rows, platformID)
	if err != nil {
		return res, rollback(tx, err, log)
	}

	if err := in.commit(tx); err != nil {
		return res, rollback(tx, &apperrors.ConnectionError{Op: "commit", Err: err}, log)
	}
	res.Headers = hr.Inserted
	res.Lines = lr.Inserted
	res.Provisioned = lr.Provisioned
	return res, nil
}

func rollback(tx *gorm.DB, cause error, log *zap.Logger) error {
	if err := tx.Rollback().Error; err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		log.Warn("Rollback failed", zap.Error(err))
	}
	return cause
}
