package ingest

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
	"github.com/diewo77/go-sales-loader/internal/models"
)

// LineResult reports what LineLoader wrote.
type LineResult struct {
	Inserted    int
	Provisioned int // junction rows created while resolving
}

// LineLoader inserts one ItensSaida per row.
type LineLoader struct {
	resolver        *Resolver
	defaultQuantity int
}

// NewLineLoader creates a LineLoader. Rows without a quantity get defaultQuantity.
func NewLineLoader(resolver *Resolver, defaultQuantity int) *LineLoader {
	if defaultQuantity < 1 {
		defaultQuantity = 1
	}
	return &LineLoader{resolver: resolver, defaultQuantity: defaultQuantity}
}

// Load resolves each row and inserts its line item under the header with the same
// order number. Headers must already exist in tx.
func (l *LineLoader) Load(ctx context.Context, tx *gorm.DB, rows []Row, platformID uint) (LineResult, error) {
	tx = tx.WithContext(ctx)
	var res LineResult
	for _, r := range rows {
		ref, err := l.resolver.Resolve(ctx, tx, r.NomeProduto, r.CaracteristicaProduto)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", r.Line, err)
		}
		if ref.Provisioned {
			res.Provisioned++
		}

		headerID, err := findHeader(tx, r.NumeroPedido)
		if err != nil {
			return res, fmt.Errorf("line %d: %w", r.Line, err)
		}

		qty := l.defaultQuantity
		if r.Quantidade != nil {
			qty = *r.Quantidade
		}
		item := models.ItensSaida{
			SaidaID:                 headerID,
			PlataformaID:            platformID,
			Quantidade:              qty,
			ProdutoCaracteristicaID: ref.JunctionID,
			CaracteristicaID:        ref.CharacteristicID,
			TipoCaracteristicaID:    ref.CharacteristicTypeID,
			ProdutoID:               ref.ProductID,
		}
		if err := tx.Create(&item).Error; err != nil {
			return res, fmt.Errorf("line %d: %w", r.Line, &apperrors.ConnectionError{Op: "insert line item", Err: err})
		}
		res.Inserted++
	}
	return res, nil
}

// findHeader returns the newest Saida with the order number, so lines from a
// re-exported order attach to the header inserted by the current load.
func findHeader(tx *gorm.DB, numeroPedido string) (uint, error) {
	var h models.Saida
	err := tx.Where(map[string]any{"numeroPedido": numeroPedido}).Last(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.NewNotFound(apperrors.KindHeader, numeroPedido)
	}
	if err != nil {
		return 0, &apperrors.ConnectionError{Op: "lookup header " + numeroPedido, Err: err}
	}
	return h.ID, nil
}
