package models

// Product reference models. The loader never creates Produto or Caracteristica rows.

type Produto struct {
	ID   uint   `gorm:"column:idProduto;primaryKey"`
	Nome string `gorm:"column:nomeProduto;size:255;not null;uniqueIndex"`
}

func (Produto) TableName() string { return "Produto" }

type TipoCaracteristica struct {
	ID   uint   `gorm:"column:idTipoCaracteristica;primaryKey"`
	Nome string `gorm:"column:nomeTipoCaracteristica;size:100;not null"` // ex: cor, tamanho
}

func (TipoCaracteristica) TableName() string { return "TipoCaracteristica" }

type Caracteristica struct {
	ID                   uint   `gorm:"column:idCaracteristica;primaryKey"`
	Nome                 string `gorm:"column:nomeCaracteristica;size:255;not null;uniqueIndex"`
	TipoCaracteristicaID uint   `gorm:"column:idTipoCaracteristica;not null"`
}

func (Caracteristica) TableName() string { return "Caracteristica" }

// ProdutoCaracteristica associates a product with a characteristic and its type.
// The triple is unique so concurrent loaders cannot provision the same junction twice.
type ProdutoCaracteristica struct {
	ID                   uint `gorm:"column:idProdutoCaracteristica;primaryKey"`
	ProdutoID            uint `gorm:"column:idProduto;not null;uniqueIndex:ux_produto_caracteristica,priority:1"`
	CaracteristicaID     uint `gorm:"column:idCaracteristica;not null;uniqueIndex:ux_produto_caracteristica,priority:2"`
	TipoCaracteristicaID uint `gorm:"column:idTipoCaracteristica;not null;uniqueIndex:ux_produto_caracteristica,priority:3"`
}

func (ProdutoCaracteristica) TableName() string { return "ProdutoCaracteristica" }
