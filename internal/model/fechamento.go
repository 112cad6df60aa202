package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Resultado of a fechamento: counted cash vs expected cash.
const (
	ResultadoExato = "exato"
	ResultadoSobra = "sobra"
	ResultadoFalta = "falta"
)

// epsilonCentavo is the smallest currency unit. Differences below it count as
// an exact match.
var epsilonCentavo = decimal.New(1, -2)

// FechamentoCaixa records the reconciliation outcome of a closed session.
// The primary key on SessaoID makes the record write-once: recomputing a
// fechamento for an already-closed session is a duplicate-key error upstream,
// never an overwrite.
type FechamentoCaixa struct {
	SessaoID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ValorEsperado decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ValorContado  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Diferenca     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Resultado     string          `gorm:"type:varchar(10);not null"`
	ClosedAt      time.Time
}

func (FechamentoCaixa) TableName() string { return "fechamentos_caixa" }

// NovoFechamento computes diferenca = contado − esperado and classifies the
// outcome. Pure; the caller persists the record atomically with the session
// close.
func NovoFechamento(sessaoID uuid.UUID, esperado, contado decimal.Decimal, closedAt time.Time) FechamentoCaixa {
	diferenca := contado.Sub(esperado)

	resultado := ResultadoExato
	switch {
	case diferenca.Abs().LessThan(epsilonCentavo):
		resultado = ResultadoExato
	case diferenca.IsPositive():
		resultado = ResultadoSobra
	default:
		resultado = ResultadoFalta
	}

	return FechamentoCaixa{
		SessaoID:      sessaoID,
		ValorEsperado: esperado,
		ValorContado:  contado,
		Diferenca:     diferenca,
		Resultado:     resultado,
		ClosedAt:      closedAt,
	}
}
