package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:          "sqlite",
		Name:            "file:" + t.Name() + "?mode=memory&cache=shared",
		ConnectAttempts: 1,
	}
	conn, err := Connect(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { Close(conn) })
	return conn
}

func TestCheckSchemaBeforeAndAfterBootstrap(t *testing.T) {
	conn := openTestDB(t)

	err := CheckSchema(conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Saida")

	require.NoError(t, Bootstrap(conn))
	assert.NoError(t, CheckSchema(conn))
}

func TestSeedIdempotent(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, Bootstrap(conn))

	cfg := config.LoaderConfig{CompanyID: 1, SaleTypeID: 2, StatusID: 3}
	require.NoError(t, Seed(conn, cfg))
	require.NoError(t, Seed(conn, cfg))

	var empresas, tipos, status int64
	conn.Model(&models.Empresa{}).Count(&empresas)
	conn.Model(&models.TipoSaida{}).Count(&tipos)
	conn.Model(&models.StatusVenda{}).Count(&status)
	assert.Equal(t, int64(1), empresas)
	assert.Equal(t, int64(1), tipos)
	assert.Equal(t, int64(1), status)

	var tipo models.TipoSaida
	require.NoError(t, conn.First(&tipo).Error)
	assert.Equal(t, uint(2), tipo.ID)
}

func TestJunctionUniqueIndex(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, Bootstrap(conn))

	j := models.ProdutoCaracteristica{ProdutoID: 1, CaracteristicaID: 2, TipoCaracteristicaID: 3}
	require.NoError(t, conn.Create(&j).Error)

	dup := models.ProdutoCaracteristica{ProdutoID: 1, CaracteristicaID: 2, TipoCaracteristicaID: 3}
	err := conn.Create(&dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
