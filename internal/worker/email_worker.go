package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"belezapos/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailFechamentoPayload is the job body for sending the closing report to the
// owner after a session is reconciled.
type EmailFechamentoPayload struct {
	SessaoID string `json:"sessao_id"`
	Para     string `json:"para"`
	Assunto  string `json:"assunto"`
	Corpo    string `json:"corpo"`
	PDFPath  string `json:"pdf_path"`
}

// EmailWorker delivers closing-report emails through the configured mailer.
type EmailWorker struct {
	mailer *infra.Mailer
}

func NewEmailWorker(mailer *infra.Mailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Processar(ctx context.Context, raw json.RawMessage) error {
	var p EmailFechamentoPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("email worker: payload inválido: %w", err)
	}
	if p.Para == "" {
		log.Warn().Str("sessao_id", p.SessaoID).Msg("email de fechamento sem destinatário, ignorando")
		return nil
	}

	if err := w.mailer.EnviarRelatorio(p.Para, p.Assunto, p.Corpo, p.PDFPath); err != nil {
		return fmt.Errorf("email worker: envio falhou: %w", err)
	}

	log.Info().
		Str("sessao_id", p.SessaoID).
		Str("para", p.Para).
		Msg("relatório de fechamento enviado")
	return nil
}
