package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func forma(f FormaPagamento) *FormaPagamento { return &f }

func mov(tipo TipoMovimento, valor string, f *FormaPagamento) MovimentoCaixa {
	return MovimentoCaixa{
		ID:             uuid.New(),
		SessaoID:       uuid.New(),
		Tipo:           tipo,
		Valor:          dec(valor),
		FormaPagamento: f,
	}
}

func TestCalcularTotais(t *testing.T) {
	movimentos := []MovimentoCaixa{
		mov(TipoEntrada, "50.00", forma(PagamentoDinheiro)),
		mov(TipoEntrada, "120.00", forma(PagamentoPix)),
		mov(TipoEntrada, "80.00", forma(PagamentoCredito)),
		mov(TipoSaida, "10.00", forma(PagamentoDinheiro)),
		mov(TipoSangria, "30.00", nil),
		mov(TipoReforco, "20.00", nil),
	}
	despesas := []Despesa{
		{ID: uuid.New(), Valor: dec("25.00"), PagoPor: PagoPorCaixa},
		{ID: uuid.New(), Valor: dec("500.00"), PagoPor: PagoPorDono},
	}

	totais := CalcularTotais(dec("100.00"), movimentos, despesas)

	assert.True(t, totais.Entradas.Equal(dec("270.00")), "entradas = %s", totais.Entradas)
	assert.True(t, totais.Saidas.Equal(dec("40.00")), "saidas = %s", totais.Saidas)
	assert.True(t, totais.DespesasCaixa.Equal(dec("25.00")), "despesas = %s", totais.DespesasCaixa)
	// 100 + 270 - 40 - 25
	assert.True(t, totais.Saldo.Equal(dec("305.00")), "saldo = %s", totais.Saldo)
	// 100 + 50 - 10 - 30 + 20 - 25
	assert.True(t, totais.SaldoDinheiro.Equal(dec("105.00")), "saldo dinheiro = %s", totais.SaldoDinheiro)
	assert.True(t, totais.PorForma[PagamentoPix].Equal(dec("120.00")))
	assert.True(t, totais.PorForma[PagamentoCredito].Equal(dec("80.00")))
}

// Totals must not depend on the order entries arrived; that is what makes
// unordered multi-device appends safe.
func TestCalcularTotaisIndependeDaOrdem(t *testing.T) {
	base := []MovimentoCaixa{
		mov(TipoEntrada, "50.00", forma(PagamentoDinheiro)),
		mov(TipoSangria, "30.00", nil),
		mov(TipoEntrada, "75.50", forma(PagamentoDebito)),
		mov(TipoReforco, "10.00", nil),
		mov(TipoSaida, "5.25", forma(PagamentoDinheiro)),
	}
	despesas := []Despesa{
		{ID: uuid.New(), Valor: dec("12.75"), PagoPor: PagoPorCaixa},
	}

	referencia := CalcularTotais(dec("200.00"), base, despesas)

	permutacoes := [][]int{
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{1, 4, 0, 3, 2},
	}
	for _, perm := range permutacoes {
		embaralhado := make([]MovimentoCaixa, len(base))
		for i, j := range perm {
			embaralhado[i] = base[j]
		}
		totais := CalcularTotais(dec("200.00"), embaralhado, despesas)
		assert.True(t, totais.Saldo.Equal(referencia.Saldo))
		assert.True(t, totais.SaldoDinheiro.Equal(referencia.SaldoDinheiro))
		assert.True(t, totais.Entradas.Equal(referencia.Entradas))
		assert.True(t, totais.Saidas.Equal(referencia.Saidas))
	}
}

func TestDespesaDonoNaoAfetaDinheiro(t *testing.T) {
	despesas := []Despesa{
		{ID: uuid.New(), Valor: dec("999.00"), PagoPor: PagoPorDono},
	}
	totais := CalcularTotais(dec("100.00"), nil, despesas)
	assert.True(t, totais.SaldoDinheiro.Equal(dec("100.00")))
	assert.True(t, totais.DespesasCaixa.IsZero())
}

func TestNovoFechamento(t *testing.T) {
	sessaoID := uuid.New()
	closedAt := time.Now()

	casos := []struct {
		nome      string
		esperado  string
		contado   string
		resultado string
		diferenca string
	}{
		{"exato", "130.00", "130.00", ResultadoExato, "0.00"},
		{"falta", "130.00", "125.00", ResultadoFalta, "-5.00"},
		{"sobra", "130.00", "140.00", ResultadoSobra, "10.00"},
		{"meio centavo conta como exato", "130.00", "130.005", ResultadoExato, "0.005"},
	}
	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			f := NovoFechamento(sessaoID, dec(c.esperado), dec(c.contado), closedAt)
			require.Equal(t, c.resultado, f.Resultado)
			assert.True(t, f.Diferenca.Equal(dec(c.diferenca)), "diferenca = %s", f.Diferenca)
			assert.Equal(t, sessaoID, f.SessaoID)
		})
	}
}
