package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/db"
	"github.com/diewo77/go-sales-loader/internal/ingest"
	"github.com/diewo77/go-sales-loader/internal/models"
)

func loaderConfig() config.LoaderConfig {
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

func openCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Connect(context.Background(), config.DatabaseConfig{
		Driver:          "sqlite",
		Name:            "file:" + t.Name() + "?mode=memory&cache=shared",
		ConnectAttempts: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Bootstrap(conn))
	require.NoError(t, db.Seed(conn, loaderConfig()))
	require.NoError(t, conn.Create(&models.TipoCaracteristica{ID: 1, Nome: "cor"}).Error)
	require.NoError(t, conn.Create(&[]models.Produto{{ID: 1, Nome: "Camiseta"}, {ID: 2, Nome: "Boné"}}).Error)
	require.NoError(t, conn.Create(&models.Caracteristica{ID: 1, Nome: "Azul", TipoCaracteristicaID: 1}).Error)
	return conn
}

const orderFile = "Order.all.20250101_20250131_1_20250828_120018_processado.csv"

const orderContent = "numeroPedido,dtVenda,precoVenda,totalDesconto,nomeProduto,caracteristicaProduto,quantidade\n" +
	"5001,2025-01-15 10:30:00,199.90,10.00,Camiseta,Azul,\n" +
	"5001,2025-01-15 10:30:00,199.90,10.00,Boné,Azul,2\n"

func TestPollerWithIngestor_EndToEnd(t *testing.T) {
	conn := openCatalogDB(t)
	cfg := watchConfig(t, 0)
	writeFile(t, cfg.Dir, orderFile, orderContent)
	writeFile(t, cfg.Dir, "Vendas-abc_2_x.csv", "numeroPedido,dtVenda\n")

	p := NewPoller(ingest.NewIngestor(conn, loaderConfig(), ingest.ContractPrefixed, nil, nil), cfg, nil, nil)
	require.NoError(t, p.Prepare())
	sum := p.Tick(context.Background())

	assert.Equal(t, 1, sum.Archived)
	assert.Equal(t, 1, sum.Failed, "the broken sibling does not stop the batch")
	assert.True(t, exists(filepath.Join(cfg.ProcessedDir(), orderFile)))
	assert.True(t, exists(filepath.Join(cfg.Dir, "Vendas-abc_2_x.csv")))

	var headers []models.Saida
	require.NoError(t, conn.Preload("Itens").Find(&headers).Error)
	require.Len(t, headers, 1)
	assert.Equal(t, uint(1), headers[0].PlataformaID)
	require.Len(t, headers[0].Itens, 2)
	assert.Equal(t, 1, headers[0].Itens[0].Quantidade, "empty quantity defaults to 1")
	assert.Equal(t, 2, headers[0].Itens[1].Quantidade)

	_, err := os.Stat(filepath.Join(cfg.Dir, orderFile))
	assert.True(t, os.IsNotExist(err))
}
