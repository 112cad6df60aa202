package service

import (
	"time"

	"belezapos/internal/dto"
	"belezapos/internal/model"

	"github.com/shopspring/decimal"
)

// DTO mapping helpers. Timestamps go out as RFC 3339.

func sessaoResponse(s *model.SessaoCaixa, totais *model.Totais) dto.SessaoResponse {
	resp := dto.SessaoResponse{
		SessaoID:     s.ID.String(),
		SaldoInicial: s.SaldoInicial,
		Status:       s.Status,
		Observacoes:  s.Observacoes,
		OpenedAt:     s.OpenedAt.Format(time.RFC3339),
	}
	if s.ClosedAt != nil {
		closed := s.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closed
	}
	if totais != nil {
		t := totaisResponse(*totais)
		resp.Totais = &t
	}
	return resp
}

func totaisResponse(t model.Totais) dto.TotaisResponse {
	resp := dto.TotaisResponse{
		Entradas:      t.Entradas,
		Saidas:        t.Saidas,
		DespesasCaixa: t.DespesasCaixa,
		Saldo:         t.Saldo,
		SaldoDinheiro: t.SaldoDinheiro,
		PorForma:      make(map[string]decimal.Decimal, len(t.PorForma)),
	}
	for forma, valor := range t.PorForma {
		resp.PorForma[string(forma)] = valor
	}
	return resp
}

func movimentoResponse(m model.MovimentoCaixa) dto.MovimentoResponse {
	var forma *string
	if m.FormaPagamento != nil {
		f := string(*m.FormaPagamento)
		forma = &f
	}
	return dto.MovimentoResponse{
		ID:             m.ID.String(),
		SessaoID:       m.SessaoID.String(),
		Tipo:           string(m.Tipo),
		Categoria:      m.Categoria,
		FormaPagamento: forma,
		Valor:          m.Valor,
		Descricao:      m.Descricao,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

func despesaResponse(d model.Despesa) dto.DespesaResponse {
	var sessaoID *string
	if d.SessaoID != nil {
		id := d.SessaoID.String()
		sessaoID = &id
	}
	return dto.DespesaResponse{
		ID:          d.ID.String(),
		SessaoID:    sessaoID,
		Descricao:   d.Descricao,
		Categoria:   d.Categoria,
		Valor:       d.Valor,
		PagoPor:     string(d.PagoPor),
		Observacoes: d.Observacoes,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
}

func fechamentoResponse(f *model.FechamentoCaixa) dto.FechamentoResponse {
	return dto.FechamentoResponse{
		SessaoID:      f.SessaoID.String(),
		ValorEsperado: f.ValorEsperado,
		ValorContado:  f.ValorContado,
		Diferenca:     f.Diferenca,
		Resultado:     f.Resultado,
		ClosedAt:      f.ClosedAt.Format(time.RFC3339),
	}
}
