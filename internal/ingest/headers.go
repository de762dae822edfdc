package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/models"
)

// HeaderResult reports what HeaderLoader wrote.
type HeaderResult struct {
	Inserted int
}

// HeaderLoader inserts one Saida per distinct header key.
//
// With config.DedupTuple the key is (order number, date, price, discount), so a
// revised export of the same order produces a second header. With config.DedupOrder
// the first row of each order number wins.
type HeaderLoader struct {
	cfg config.LoaderConfig
}

// NewHeaderLoader creates a HeaderLoader stamping the fixed codes from cfg.
func NewHeaderLoader(cfg config.LoaderConfig) *HeaderLoader {
	return &HeaderLoader{cfg: cfg}
}

// Load inserts the headers for rows in first-occurrence order. The caller owns tx.
func (l *HeaderLoader) Load(ctx context.Context, tx *gorm.DB, rows []Row, platformID uint) (HeaderResult, error) {
	tx = tx.WithContext(ctx)
	var res HeaderResult
	for _, r := range l.distinct(rows) {
		h := models.Saida{
			EmpresaID:     l.cfg.CompanyID,
			PlataformaID:  platformID,
			TipoSaidaID:   l.cfg.SaleTypeID,
			NumeroPedido:  r.NumeroPedido,
			DtVenda:       r.DtVenda,
			PrecoVenda:    r.PrecoVenda,
			TotalDesconto: r.TotalDesconto,
			StatusVendaID: l.cfg.StatusID,
		}
		if err := tx.Create(&h).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return res, fmt.Errorf("line %d: %w", r.Line, &apperrors.ConstraintViolationError{Table: h.TableName(), Err: err})
			}
			return res, fmt.Errorf("line %d: %w", r.Line, &apperrors.ConnectionError{Op: "insert header " + r.NumeroPedido, Err: err})
		}
		res.Inserted++
	}
	return res, nil
}

func (l *HeaderLoader) distinct(rows []Row) []Row {
	seen := make(map[headerKey]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		k := l.key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

type headerKey struct {
	order    string
	date     string
	price    string
	discount string
}

func (l *HeaderLoader) key(r Row) headerKey {
	if l.cfg.HeaderDedup == config.DedupOrder {
		return headerKey{order: r.NumeroPedido}
	}
	// decimal.String normalises "10.0" and "10.00" to the same value.
	return headerKey{
		order:    r.NumeroPedido,
		date:     r.DtVenda.Format(time.RFC3339Nano),
		price:    r.PrecoVenda.String(),
		discount: r.TotalDesconto.String(),
	}
}
