package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCaixaRequest struct {
	SaldoInicial decimal.Decimal `json:"saldo_inicial" validate:"min=0"`
	Observacoes  *string         `json:"observacoes"`
}

type FecharCaixaRequest struct {
	SaldoContado decimal.Decimal `json:"saldo_contado" validate:"min=0"`
	Observacoes  *string         `json:"observacoes"`
}

// MovimentoRequest covers generic entrada/saida entries. The id is generated
// by the client and doubles as the idempotency key.
type MovimentoRequest struct {
	ID             string          `json:"id"              validate:"required,uuid"`
	Tipo           string          `json:"tipo"            validate:"required,oneof=entrada saida"`
	Categoria      string          `json:"categoria"       validate:"required,min=2,max=40"`
	FormaPagamento *string         `json:"forma_pagamento" validate:"omitempty,oneof=dinheiro debito credito pix"`
	Valor          decimal.Decimal `json:"valor"           validate:"required,gt=0"`
	Descricao      string          `json:"descricao"       validate:"required,min=3"`
}

type SangriaRequest struct {
	ID     string          `json:"id"     validate:"required,uuid"`
	Valor  decimal.Decimal `json:"valor"  validate:"required,gt=0"`
	Motivo string          `json:"motivo" validate:"required,min=3"`
}

type ReforcoRequest struct {
	ID     string          `json:"id"     validate:"required,uuid"`
	Valor  decimal.Decimal `json:"valor"  validate:"required,gt=0"`
	Motivo string          `json:"motivo" validate:"required,min=3"`
}

type DespesaRequest struct {
	ID          string          `json:"id"        validate:"required,uuid"`
	Descricao   string          `json:"descricao" validate:"required,min=3"`
	Categoria   string          `json:"categoria" validate:"omitempty,max=40"`
	Valor       decimal.Decimal `json:"valor"     validate:"required,gt=0"`
	PagoPor     string          `json:"pago_por"  validate:"required,oneof=caixa dono"`
	Observacoes *string         `json:"observacoes"`
}

// PagamentoRequest is the payment-completion event emitted by the comanda
// (tab) module when a customer settles.
type PagamentoRequest struct {
	ID             string          `json:"id"              validate:"required,uuid"`
	ComandaID      string          `json:"comanda_id"      validate:"required"`
	Valor          decimal.Decimal `json:"valor"           validate:"required,gt=0"`
	FormaPagamento string          `json:"forma_pagamento" validate:"required,oneof=dinheiro debito credito pix"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TotaisResponse struct {
	Entradas      decimal.Decimal            `json:"entradas"`
	Saidas        decimal.Decimal            `json:"saidas"`
	DespesasCaixa decimal.Decimal            `json:"despesas_caixa"`
	Saldo         decimal.Decimal            `json:"saldo"`
	SaldoDinheiro decimal.Decimal            `json:"saldo_dinheiro"`
	PorForma      map[string]decimal.Decimal `json:"por_forma_pagamento"`
}

type SessaoResponse struct {
	SessaoID     string          `json:"sessao_id"`
	SaldoInicial decimal.Decimal `json:"saldo_inicial"`
	Status       string          `json:"status"`
	Observacoes  *string         `json:"observacoes"`
	OpenedAt     string          `json:"opened_at"`
	ClosedAt     *string         `json:"closed_at"`
	Totais       *TotaisResponse `json:"totais,omitempty"`
}

type FechamentoResponse struct {
	SessaoID      string          `json:"sessao_id"`
	ValorEsperado decimal.Decimal `json:"valor_esperado"`
	ValorContado  decimal.Decimal `json:"valor_contado"`
	Diferenca     decimal.Decimal `json:"diferenca"`
	Resultado     string          `json:"resultado"` // exato | sobra | falta
	ClosedAt      string          `json:"closed_at"`
}

type FecharCaixaResponse struct {
	Sessao     SessaoResponse     `json:"sessao"`
	Fechamento FechamentoResponse `json:"fechamento"`
}

type MovimentoResponse struct {
	ID             string          `json:"id"`
	SessaoID       string          `json:"sessao_id"`
	Tipo           string          `json:"tipo"`
	Categoria      string          `json:"categoria"`
	FormaPagamento *string         `json:"forma_pagamento"`
	Valor          decimal.Decimal `json:"valor"`
	Descricao      string          `json:"descricao"`
	CreatedAt      string          `json:"created_at"`
}

type DespesaResponse struct {
	ID          string          `json:"id"`
	SessaoID    *string         `json:"sessao_id"`
	Descricao   string          `json:"descricao"`
	Categoria   string          `json:"categoria"`
	Valor       decimal.Decimal `json:"valor"`
	PagoPor     string          `json:"pago_por"`
	Observacoes *string         `json:"observacoes"`
	CreatedAt   string          `json:"created_at"`
}

type SyncStatusResponse struct {
	Online     bool    `json:"online"`
	LastSyncAt *string `json:"last_sync_at"`
	Pendentes  int64   `json:"pendentes"`
}
