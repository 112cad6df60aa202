package service

import (
	"context"
	"encoding/json"

	"belezapos/internal/apierror"
	"belezapos/internal/capability"
	"belezapos/internal/offline"
	"belezapos/internal/repository"
)

// aplicadorCaixa writes queued commands to the durable store. It re-derives
// the capability set from the command's device class and role before touching
// the repository, so the gate holds even for commands replayed long after the
// original request.
type aplicadorCaixa struct {
	repo repository.CaixaRepository
}

func NewAplicador(repo repository.CaixaRepository) offline.Aplicador {
	return &aplicadorCaixa{repo: repo}
}

func (a *aplicadorCaixa) Aplicar(ctx context.Context, c offline.Comando) error {
	caps := capability.Para(capability.Classe(c.Classe), c.Papel)

	switch c.Tipo {
	case offline.ComandoAbrir:
		if !caps.Permite(capability.Abrir) {
			return apierror.Permissao("dispositivo sem permissão para abrir o caixa")
		}
		var p offline.AbrirPayload
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			return apierror.Validacao("payload de abertura inválido")
		}
		sessao := p.Sessao
		err := a.repo.CreateSessao(ctx, &sessao)
		if err != nil && apierror.KindOf(err) == apierror.KindEstadoSessao {
			// replay after a crash between apply and dequeue: the session id
			// already exists, the command is already durable
			if existente, ferr := a.repo.FindSessaoByID(ctx, sessao.ID); ferr == nil && existente != nil {
				return nil
			}
		}
		return err

	case offline.ComandoFechar:
		if !caps.Permite(capability.Fechar) {
			return apierror.Permissao("dispositivo sem permissão para fechar o caixa")
		}
		var p offline.FecharPayload
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			return apierror.Validacao("payload de fechamento inválido")
		}
		_, _, err := a.repo.FecharSessao(ctx, p.SaldoContado, p.Observacoes, p.ClosedAt)
		return err

	case offline.ComandoMovimento:
		var p offline.MovimentoPayload
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			return apierror.Validacao("payload de movimento inválido")
		}
		if !caps.Permite(acaoDoMovimento(p.Movimento.Tipo)) {
			return apierror.Permissao("dispositivo sem permissão para este movimento")
		}
		m := p.Movimento
		return a.repo.AppendMovimento(ctx, &m)

	case offline.ComandoDespesa:
		if !caps.Permite(capability.Despesa) {
			return apierror.Permissao("dispositivo sem permissão para registrar despesas")
		}
		var p offline.DespesaPayload
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			return apierror.Validacao("payload de despesa inválido")
		}
		d := p.Despesa
		return a.repo.AppendDespesa(ctx, &d)

	default:
		return apierror.Validacao("tipo de comando desconhecido")
	}
}
