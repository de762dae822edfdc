package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
	"github.com/diewo77/go-sales-loader/internal/cache"
	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/models"
)

// Reference is the id chain a line item points at.
type Reference struct {
	ProductID            uint
	CharacteristicID     uint
	CharacteristicTypeID uint
	JunctionID           uint
	Provisioned          bool // the junction row was created by this call
}

// Resolver turns a product name and a characteristic name into a Reference.
//
// Under config.JunctionProvision a missing ProdutoCaracteristica row is inserted:
// the read path writes to the reference schema on purpose, so that exports naming
// a valid product and characteristic pair load without manual catalog work. Each
// insertion is logged at info level. Under config.JunctionStrict the lookup fails.
//
// Product and characteristic ids are cached; the loader never writes those tables.
// Junction ids are not cached because they can be created in a transaction that is
// later rolled back.
type Resolver struct {
	policy          config.JunctionPolicy
	products        *cache.TTL[string, uint]
	characteristics *cache.TTL[string, models.Caracteristica]
	log             *zap.Logger
}

// NewResolver creates a resolver. cacheTTL <= 0 disables the reference cache.
func NewResolver(policy config.JunctionPolicy, cacheTTL time.Duration, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		policy:          policy,
		products:        cache.NewTTL[string, uint](cacheTTL),
		characteristics: cache.NewTTL[string, models.Caracteristica](cacheTTL),
		log:             log,
	}
}

// Resolve looks up the full id chain inside tx.
func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, productName, characteristicName string) (Reference, error) {
	tx = tx.WithContext(ctx)

	productID, err := r.products.GetOrLoad(productName, func() (uint, error) {
		return lookupProduct(tx, productName)
	})
	if err != nil {
		return Reference{}, err
	}

	carac, err := r.characteristics.GetOrLoad(characteristicName, func() (models.Caracteristica, error) {
		return lookupCharacteristic(tx, characteristicName)
	})
	if err != nil {
		return Reference{}, err
	}

	ref := Reference{
		ProductID:            productID,
		CharacteristicID:     carac.ID,
		CharacteristicTypeID: carac.TipoCaracteristicaID,
	}

	id, found, err := lookupJunction(tx, ref)
	if err != nil {
		return Reference{}, err
	}
	if found {
		ref.JunctionID = id
		return ref, nil
	}

	if r.policy == config.JunctionStrict {
		return Reference{}, apperrors.NewNotFound(apperrors.KindJunction, junctionKey(productName, characteristicName, ref))
	}

	id, created, err := provisionJunction(tx, ref)
	if err != nil {
		return Reference{}, err
	}
	ref.JunctionID = id
	ref.Provisioned = created
	if created {
		r.log.Info("Provisioned missing product characteristic",
			zap.String("product", productName),
			zap.String("characteristic", characteristicName),
			zap.Uint("product_id", ref.ProductID),
			zap.Uint("characteristic_id", ref.CharacteristicID),
			zap.Uint("characteristic_type_id", ref.CharacteristicTypeID),
			zap.Uint("junction_id", id))
	}
	return ref, nil
}

func lookupProduct(tx *gorm.DB, name string) (uint, error) {
	var p models.Produto
	err := tx.Where(map[string]any{"nomeProduto": name}).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.NewNotFound(apperrors.KindProduct, name)
	}
	if err != nil {
		return 0, &apperrors.ConnectionError{Op: fmt.Sprintf("lookup product %q", name), Err: err}
	}
	return p.ID, nil
}

func lookupCharacteristic(tx *gorm.DB, name string) (models.Caracteristica, error) {
	var c models.Caracteristica
	err := tx.Where(map[string]any{"nomeCaracteristica": name}).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c, apperrors.NewNotFound(apperrors.KindCharacteristic, name)
	}
	if err != nil {
		return c, &apperrors.ConnectionError{Op: fmt.Sprintf("lookup characteristic %q", name), Err: err}
	}
	return c, nil
}

func lookupJunction(tx *gorm.DB, ref Reference) (uint, bool, error) {
	var j models.ProdutoCaracteristica
	err := tx.Where(map[string]any{
		"idProduto":            ref.ProductID,
		"idCaracteristica":     ref.CharacteristicID,
		"idTipoCaracteristica": ref.CharacteristicTypeID,
	}).First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &apperrors.ConnectionError{Op: "lookup product characteristic", Err: err}
	}
	return j.ID, true, nil
}

// provisionJunction inserts the junction inside a savepoint. When a concurrent
// loader inserted the same triple first, the unique index rejects the insert, the
// savepoint is rolled back and the winner's row is returned with created=false.
func provisionJunction(tx *gorm.DB, ref Reference) (id uint, created bool, err error) {
	j := models.ProdutoCaracteristica{
		ProdutoID:            ref.ProductID,
		CaracteristicaID:     ref.CharacteristicID,
		TipoCaracteristicaID: ref.CharacteristicTypeID,
	}
	insErr := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(&j).Error
	})
	if insErr == nil {
		return j.ID, true, nil
	}
	if !errors.Is(insErr, gorm.ErrDuplicatedKey) {
		return 0, false, &apperrors.ConnectionError{Op: "insert product characteristic", Err: insErr}
	}

	// Under REPEATABLE READ a plain read reuses the snapshot of the first lookup;
	// a locking read returns the latest committed row.
	id, found, err := lookupJunction(tx.Clauses(clause.Locking{Strength: clause.LockingStrengthShare}), ref)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, &apperrors.ConstraintViolationError{Table: models.ProdutoCaracteristica{}.TableName(), Err: insErr}
	}
	return id, false, nil
}

func junctionKey(product, characteristic string, ref Reference) string {
	return fmt.Sprintf("%s/%s (product=%d characteristic=%d type=%d)",
		product, characteristic, ref.ProductID, ref.CharacteristicID, ref.CharacteristicTypeID)
}
