package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/diewo77/go-sales-loader/internal/apperrors"
	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/db"
	"github.com/diewo77/go-sales-loader/internal/models"
)

func TestResolve_ExistingJunction(t *testing.T) {
	conn := openTestDB(t)
	r := NewResolver(config.JunctionProvision, time.Minute, nil)

	ref, err := r.Resolve(context.Background(), conn, "Camiseta Básica", "Azul")
	require.NoError(t, err)
	assert.Equal(t, camisetaID, ref.ProductID)
	assert.Equal(t, azulID, ref.CharacteristicID)
	assert.Equal(t, tipoCor, ref.CharacteristicTypeID)
	assert.NotZero(t, ref.JunctionID)
	assert.False(t, ref.Provisioned)
}

func TestResolve_MissingProductAndCharacteristic(t *testing.T) {
	conn := openTestDB(t)
	r := NewResolver(config.JunctionProvision, 0, nil)

	_, err := r.Resolve(context.Background(), conn, "Boné", "Azul")
	assert.True(t, apperrors.IsNotFoundKind(err, apperrors.KindProduct))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = r.Resolve(context.Background(), conn, "Camiseta Básica", "Roxo")
	assert.True(t, apperrors.IsNotFoundKind(err, apperrors.KindCharacteristic))
}

func TestResolve_ProvisionsOnce(t *testing.T) {
	conn := openTestDB(t)
	core, logs := observer.New(zap.InfoLevel)
	r := NewResolver(config.JunctionProvision, time.Minute, zap.New(core))

	first, err := r.Resolve(context.Background(), conn, "Calça Jeans", "M")
	require.NoError(t, err)
	assert.True(t, first.Provisioned)
	assert.Equal(t, tipoTamanho, first.CharacteristicTypeID)

	second, err := r.Resolve(context.Background(), conn, "Calça Jeans", "M")
	require.NoError(t, err)
	assert.False(t, second.Provisioned)
	assert.Equal(t, first.JunctionID, second.JunctionID)

	assert.Equal(t, int64(2), count(t, conn, &models.ProdutoCaracteristica{}))
	assert.Equal(t, 1, logs.FilterMessage("Provisioned missing product characteristic").Len())
}

func TestResolve_StrictRejectsMissingJunction(t *testing.T) {
	conn := openTestDB(t)
	r := NewResolver(config.JunctionStrict, 0, nil)

	_, err := r.Resolve(context.Background(), conn, "Calça Jeans", "M")
	assert.True(t, apperrors.IsNotFoundKind(err, apperrors.KindJunction))
	assert.Equal(t, int64(1), count(t, conn, &models.ProdutoCaracteristica{}))
}

func TestProvisionJunction_DuplicateReadsExisting(t *testing.T) {
	conn := openTestDB(t)

	var existing models.ProdutoCaracteristica
	require.NoError(t, conn.First(&existing).Error)
	ref := Reference{
		ProductID:            camisetaID,
		CharacteristicID:     azulID,
		CharacteristicTypeID: tipoCor,
	}

	// Same sequence as Resolve: lookup, then insert, inside one unit of work.
	tx := conn.Begin()
	require.NoError(t, tx.Error)
	_, _, err := lookupJunction(tx, ref)
	require.NoError(t, err)

	id, created, err := provisionJunction(tx, ref)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, id)

	// The failed insert only rolled back its savepoint.
	require.NoError(t, tx.Create(&models.ProdutoCaracteristica{
		ProdutoID: calcaID, CaracteristicaID: mID, TipoCaracteristicaID: tipoTamanho,
	}).Error)
	require.NoError(t, tx.Commit().Error)
	assert.Equal(t, int64(2), count(t, conn, &models.ProdutoCaracteristica{}))
}

func TestResolve_DatabaseErrorIsConnectionError(t *testing.T) {
	conn := openTestDB(t)
	r := NewResolver(config.JunctionProvision, 0, nil)
	db.Close(conn)

	_, err := r.Resolve(context.Background(), conn, "Camiseta Básica", "Azul")
	assert.ErrorIs(t, err, apperrors.ErrConnection)
	assert.Equal(t, "connection", apperrors.Kind(err))
}

func TestResolve_CachesProductLookups(t *testing.T) {
	conn := openTestDB(t)
	r := NewResolver(config.JunctionProvision, time.Minute, nil)

	_, err := r.Resolve(context.Background(), conn, "Camiseta Básica", "Azul")
	require.NoError(t, err)
	assert.Equal(t, 1, r.products.Len())
	assert.Equal(t, 1, r.characteristics.Len())

	// Failed lookups are not cached.
	_, err = r.Resolve(context.Background(), conn, "Boné", "Azul")
	require.Error(t, err)
	assert.Equal(t, 1, r.products.Len())
}
