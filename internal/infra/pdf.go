package infra

// pdf.go: closing-report PDF generation using go-pdf/fpdf.
// Generates an A7-size receipt-style relatório de fechamento with:
//   - Business name header
//   - Session period (opened/closed)
//   - Totals by payment method
//   - Expected vs counted cash with the reconciliation outcome
//
// The output file is saved to storagePath/fechamento_{sessao}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"belezapos/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GerarRelatorioFechamento writes the closing report for a closed session.
// Returns the absolute path to the generated file.
func GerarRelatorioFechamento(sessao *model.SessaoCaixa, fechamento *model.FechamentoCaixa, totais model.Totais, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("fechamento_%s.pdf", sessao.ID)
	filePath := filepath.Join(storagePath, fileName)

	// A7 (74mm x 105mm) is close to thermal receipt paper
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8 // total margins = 8mm

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "BelezaPOS", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Relatorio de Fechamento de Caixa", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// ── Session period ────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Abertura: "+sessao.OpenedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, "Fechamento: "+fechamento.ClosedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ────────────────────────────────────────────────────────────────
	linha := func(rotulo string, valor decimal.Decimal) {
		pdf.CellFormat(contentW*0.6, 4, rotulo, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 4, "R$ "+valor.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 7)
	linha("Saldo inicial", sessao.SaldoInicial)
	linha("Entradas", totais.Entradas)
	linha("Saidas", totais.Saidas)
	linha("Despesas (caixa)", totais.DespesasCaixa)
	pdf.Ln(1)

	for _, forma := range []model.FormaPagamento{
		model.PagamentoDinheiro, model.PagamentoDebito, model.PagamentoCredito, model.PagamentoPix,
	} {
		linha("  "+string(forma), totais.PorForma[forma])
	}
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Reconciliation ────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 8)
	linha("Esperado em dinheiro", fechamento.ValorEsperado)
	linha("Contado", fechamento.ValorContado)
	linha("Diferenca", fechamento.Diferenca)
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, "Resultado: "+fechamento.Resultado, "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
