package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/db"
	"github.com/diewo77/go-sales-loader/internal/models"
)

// Reference fixture ids.
const (
	tipoCor     uint = 1
	tipoTamanho uint = 2

	camisetaID uint = 10
	calcaID    uint = 11
	azulID     uint = 20
	mID        uint = 21
)

func testLoaderConfig() config.LoaderConfig {
	return config.LoaderConfig{
		JunctionPolicy:  config.JunctionProvision,
		HeaderDedup:     config.DedupTuple,
		CompanyID:       1,
		SaleTypeID:      1,
		StatusID:        1,
		DefaultQuantity: 1,
		Encoding:        "utf-8",
	}
}

// openTestDB returns a fresh in-memory database with the schema, the fixed codes
// and a small catalog: Camiseta Básica/Azul has a junction, Calça Jeans/M does not.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.DatabaseConfig{
		Driver:          "sqlite",
		Name:            "file:" + name + "?mode=memory&cache=shared",
		ConnectAttempts: 1,
	}
	conn, err := db.Connect(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Bootstrap(conn))
	require.NoError(t, db.Seed(conn, testLoaderConfig()))
	require.NoError(t, conn.Create(&models.Plataforma{ID: 1, Nome: "Loja própria"}).Error)
	require.NoError(t, conn.Create(&[]models.TipoCaracteristica{
		{ID: tipoCor, Nome: "cor"},
		{ID: tipoTamanho, Nome: "tamanho"},
	}).Error)
	require.NoError(t, conn.Create(&[]models.Produto{
		{ID: camisetaID, Nome: "Camiseta Básica"},
		{ID: calcaID, Nome: "Calça Jeans"},
	}).Error)
	require.NoError(t, conn.Create(&[]models.Caracteristica{
		{ID: azulID, Nome: "Azul", TipoCaracteristicaID: tipoCor},
		{ID: mID, Nome: "M", TipoCaracteristicaID: tipoTamanho},
	}).Error)
	require.NoError(t, conn.Create(&models.ProdutoCaracteristica{
		ProdutoID: camisetaID, CaracteristicaID: azulID, TipoCaracteristicaID: tipoCor,
	}).Error)
	return conn
}

func count(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}
