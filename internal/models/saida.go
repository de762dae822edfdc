package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Saida is an order header ("saída" = outbound sale).
// Column names follow the existing schema, so every field is mapped explicitly.
type Saida struct {
	ID            uint            `gorm:"column:idSaida;primaryKey"`
	EmpresaID     uint            `gorm:"column:idEmpresa;not null"`
	PlataformaID  uint            `gorm:"column:idPlataforma;not null"`
	TipoSaidaID   uint            `gorm:"column:idTipoSaida;not null"`
	NumeroPedido  string          `gorm:"column:numeroPedido;size:100;not null;index"`
	DtVenda       time.Time       `gorm:"column:dtVenda;not null"`
	PrecoVenda    decimal.Decimal `gorm:"column:precoVenda;type:decimal(10,2);not null"`
	TotalDesconto decimal.Decimal `gorm:"column:totalDesconto;type:decimal(10,2);not null"`
	StatusVendaID uint            `gorm:"column:idStatusVenda;not null"`

	Itens []ItensSaida `gorm:"foreignKey:SaidaID"`
}

func (Saida) TableName() string { return "Saida" }

// ItensSaida is one line item of a Saida.
type ItensSaida struct {
	ID                      uint `gorm:"column:idItensSaida;primaryKey"`
	SaidaID                 uint `gorm:"column:idSaida;not null;index"`
	PlataformaID            uint `gorm:"column:idPlataforma;not null"`
	Quantidade              int  `gorm:"column:quantidade;not null;default:1"`
	ProdutoCaracteristicaID uint `gorm:"column:idProdutoCaracteristica;not null"`
	CaracteristicaID        uint `gorm:"column:idCaracteristica;not null"`
	TipoCaracteristicaID    uint `gorm:"column:idTipoCaracteristica;not null"`
	ProdutoID               uint `gorm:"column:idProduto;not null"`
}

func (ItensSaida) TableName() string { return "ItensSaida" }
