package models

// Fixed-code reference tables. Saida rows point at one company, one sale type and
// one status; the ids are configured, these rows only need to exist.

type Empresa struct {
	ID   uint   `gorm:"column:idEmpresa;primaryKey"`
	Nome string `gorm:"column:nomeEmpresa;size:255;not null"`
}

func (Empresa) TableName() string { return "Empresa" }

type TipoSaida struct {
	ID   uint   `gorm:"column:idTipoSaida;primaryKey"`
	Nome string `gorm:"column:nomeTipoSaida;size:100;not null"`
}

func (TipoSaida) TableName() string { return "TipoSaida" }

type StatusVenda struct {
	ID   uint   `gorm:"column:idStatusVenda;primaryKey"`
	Nome string `gorm:"column:nomeStatusVenda;size:100;not null"`
}

func (StatusVenda) TableName() string { return "StatusVenda" }

// Plataforma is the sales channel encoded in export file names.
type Plataforma struct {
	ID   uint   `gorm:"column:idPlataforma;primaryKey"`
	Nome string `gorm:"column:nomePlataforma;size:100;not null"`
}

func (Plataforma) TableName() string { return "Plataforma" }

// All lists every model, parents first, for schema bootstrap in tests and dev databases.
func All() []any {
	return []any{
		&Empresa{}, &TipoSaida{}, &StatusVenda{}, &Plataforma{},
		&TipoCaracteristica{}, &Produto{}, &Caracteristica{}, &ProdutoCaracteristica{},
		&Saida{}, &ItensSaida{},
	}
}
