package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of a SessaoCaixa. At most one session is "aberta" across the whole
// system, enforced by a partial unique index, not by client memory.
const (
	SessaoAberta  = "aberta"
	SessaoFechada = "fechada"
)

// TipoMovimento classifies a signed cash movement. The amount is always stored
// positive; the sign is implied by the type.
type TipoMovimento string

const (
	TipoEntrada TipoMovimento = "entrada"
	TipoSaida   TipoMovimento = "saida"
	TipoSangria TipoMovimento = "sangria"
	TipoReforco TipoMovimento = "reforco"
)

// FormaPagamento for entrada/saida movements. Sangria and reforço always
// settle in physical cash and carry no payment method.
type FormaPagamento string

const (
	PagamentoDinheiro FormaPagamento = "dinheiro"
	PagamentoDebito   FormaPagamento = "debito"
	PagamentoCredito  FormaPagamento = "credito"
	PagamentoPix      FormaPagamento = "pix"
)

// PagoPor indicates who settled a despesa. Only caixa reduces cash-on-hand.
type PagoPor string

const (
	PagoPorCaixa PagoPor = "caixa"
	PagoPorDono  PagoPor = "dono"
)

// SessaoCaixa represents one working period of the cash drawer, bounded by
// abrir and fechar. Single transition: aberta → fechada. Never deleted.
type SessaoCaixa struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null"`
	Dispositivo  string          `gorm:"type:varchar(40);not null"`
	SaldoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// SaldoContado is the blind count declared at close.
	SaldoContado *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Observacoes  *string
	Status       string `gorm:"type:varchar(20);not null;default:'aberta';index"`
	OpenedAt     time.Time
	ClosedAt     *time.Time

	Movimentos []MovimentoCaixa `gorm:"foreignKey:SessaoID"`
	Despesas   []Despesa        `gorm:"foreignKey:SessaoID"`
}

func (SessaoCaixa) TableName() string { return "sessoes_caixa" }

// MovimentoCaixa is an immutable event in the cash ledger. The ID is generated
// by the client and doubles as the idempotency key: re-submitting the same ID
// (e.g. a retried sync flush) is a no-op. Movements are NEVER modified or
// deleted; corrections create compensating entries.
type MovimentoCaixa struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"`
	SessaoID  uuid.UUID     `gorm:"type:uuid;index;not null"`
	Tipo      TipoMovimento `gorm:"type:varchar(20);not null"`
	Categoria string        `gorm:"type:varchar(40);not null"`
	// FormaPagamento is nil for sangria/reforço (cash-only by policy).
	FormaPagamento *FormaPagamento `gorm:"type:varchar(20)"`
	Valor          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descricao      string          `gorm:"not null"`
	Dispositivo    string          `gorm:"type:varchar(40)"`
	CreatedAt      time.Time
}

func (MovimentoCaixa) TableName() string { return "movimentos_caixa" }

// Despesa is an incidental expense. SessaoID is nil when logged outside a
// session, which is valid only for pago_por=dono: an expense paid from the
// drawer needs an open session to debit.
type Despesa struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessaoID    *uuid.UUID      `gorm:"type:uuid;index"`
	Descricao   string          `gorm:"not null"`
	Categoria   string          `gorm:"type:varchar(40)"`
	Valor       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PagoPor     PagoPor         `gorm:"type:varchar(10);not null"`
	Observacoes *string
	Dispositivo string `gorm:"type:varchar(40)"`
	CreatedAt   time.Time
}

func (Despesa) TableName() string { return "despesas" }
