package model

import "github.com/shopspring/decimal"

// Totais is the aggregation of a session's ledger. Every field is a plain sum
// over the movement/despesa multiset, so the result is identical for any
// permutation of the same entries, the property that makes unordered
// multi-device appends safe.
type Totais struct {
	Entradas      decimal.Decimal
	Saidas        decimal.Decimal
	DespesasCaixa decimal.Decimal
	// Saldo = saldo inicial + entradas − saidas − despesas pagas pelo caixa.
	Saldo decimal.Decimal
	// SaldoDinheiro is the portion of Saldo settled in physical cash: the
	// expected content of the drawer.
	SaldoDinheiro decimal.Decimal
	// PorForma breaks entrada movements down by payment method.
	PorForma map[FormaPagamento]decimal.Decimal
}

// CalcularTotais recomputes the running totals from scratch. Despesas paid by
// dono never touch the drawer; sangria and reforço always do.
func CalcularTotais(saldoInicial decimal.Decimal, movimentos []MovimentoCaixa, despesas []Despesa) Totais {
	t := Totais{
		PorForma: map[FormaPagamento]decimal.Decimal{
			PagamentoDinheiro: decimal.Zero,
			PagamentoDebito:   decimal.Zero,
			PagamentoCredito:  decimal.Zero,
			PagamentoPix:      decimal.Zero,
		},
	}

	dinheiro := saldoInicial
	for _, m := range movimentos {
		switch m.Tipo {
		case TipoEntrada:
			t.Entradas = t.Entradas.Add(m.Valor)
			if m.FormaPagamento != nil {
				t.PorForma[*m.FormaPagamento] = t.PorForma[*m.FormaPagamento].Add(m.Valor)
				if *m.FormaPagamento == PagamentoDinheiro {
					dinheiro = dinheiro.Add(m.Valor)
				}
			}
		case TipoReforco:
			t.Entradas = t.Entradas.Add(m.Valor)
			dinheiro = dinheiro.Add(m.Valor)
		case TipoSaida:
			t.Saidas = t.Saidas.Add(m.Valor)
			if m.FormaPagamento != nil && *m.FormaPagamento == PagamentoDinheiro {
				dinheiro = dinheiro.Sub(m.Valor)
			}
		case TipoSangria:
			t.Saidas = t.Saidas.Add(m.Valor)
			dinheiro = dinheiro.Sub(m.Valor)
		}
	}

	for _, d := range despesas {
		if d.PagoPor == PagoPorCaixa {
			t.DespesasCaixa = t.DespesasCaixa.Add(d.Valor)
			dinheiro = dinheiro.Sub(d.Valor)
		}
	}

	t.Saldo = saldoInicial.Add(t.Entradas).Sub(t.Saidas).Sub(t.DespesasCaixa)
	t.SaldoDinheiro = dinheiro
	return t
}
