package offline

import (
	"encoding/json"
	"sync"

	"belezapos/internal/apierror"
	"belezapos/internal/model"

	"github.com/google/uuid"
)

// Projecao is the in-memory view of the current session that queries are
// served from. It is rebuilt from the durable store on every refresh and
// optimistically updated when a command is accepted, so reads reflect local
// writes even while the store is unreachable.
type Projecao struct {
	mu         sync.RWMutex
	sessao     *model.SessaoCaixa
	movimentos []model.MovimentoCaixa
	despesas   []model.Despesa
	aplicados  map[uuid.UUID]bool
}

func NovaProjecao() *Projecao {
	return &Projecao{aplicados: make(map[uuid.UUID]bool)}
}

// Substituir replaces the optimistic state with the authoritative session
// loaded from the store (nil when no session is open).
func (p *Projecao) Substituir(sessao *model.SessaoCaixa) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aplicados = make(map[uuid.UUID]bool)
	if sessao == nil {
		p.sessao = nil
		p.movimentos = nil
		p.despesas = nil
		return
	}
	s := *sessao
	p.sessao = &s
	p.movimentos = append([]model.MovimentoCaixa(nil), sessao.Movimentos...)
	p.despesas = append([]model.Despesa(nil), sessao.Despesas...)
	for _, m := range p.movimentos {
		p.aplicados[m.ID] = true
	}
	for _, d := range p.despesas {
		p.aplicados[d.ID] = true
	}
}

// Aplicar runs a command against the local view. It enforces the same state
// machine the store does, so a device gets an immediate answer without a
// round trip; the durable check still happens at apply time.
func (p *Projecao) Aplicar(c Comando) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.aplicados[c.ID] {
		return nil
	}

	switch c.Tipo {
	case ComandoAbrir:
		if p.sessao != nil && p.sessao.Status == model.SessaoAberta {
			return apierror.EstadoSessao("já existe uma sessão de caixa aberta")
		}
		var payload AbrirPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return err
		}
		s := payload.Sessao
		p.sessao = &s
		p.movimentos = nil
		p.despesas = nil

	case ComandoFechar:
		if p.sessao == nil || p.sessao.Status != model.SessaoAberta {
			return apierror.EstadoSessao("não há sessão de caixa aberta")
		}
		var payload FecharPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return err
		}
		p.sessao.Status = model.SessaoFechada
		contado := payload.SaldoContado
		p.sessao.SaldoContado = &contado
		closedAt := payload.ClosedAt
		p.sessao.ClosedAt = &closedAt

	case ComandoMovimento:
		if p.sessao == nil || p.sessao.Status != model.SessaoAberta {
			return apierror.EstadoSessao("não há sessão de caixa aberta")
		}
		var payload MovimentoPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return err
		}
		m := payload.Movimento
		if m.Tipo == model.TipoSangria {
			totais := model.CalcularTotais(p.sessao.SaldoInicial, p.movimentos, p.despesas)
			if totais.SaldoDinheiro.LessThan(m.Valor) {
				return apierror.SaldoInsuficiente("saldo em dinheiro insuficiente para sangria")
			}
		}
		p.movimentos = append(p.movimentos, m)

	case ComandoDespesa:
		var payload DespesaPayload
		if err := json.Unmarshal(c.Payload, &payload); err != nil {
			return err
		}
		d := payload.Despesa
		if d.PagoPor == model.PagoPorCaixa && (p.sessao == nil || p.sessao.Status != model.SessaoAberta) {
			return apierror.EstadoSessao("despesa paga pelo caixa exige sessão aberta")
		}
		p.despesas = append(p.despesas, d)

	default:
		return apierror.Validacao("tipo de comando desconhecido")
	}

	p.aplicados[c.ID] = true
	return nil
}

// Sessao returns a copy of the current session, or nil when none is tracked.
func (p *Projecao) Sessao() *model.SessaoCaixa {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.sessao == nil {
		return nil
	}
	s := *p.sessao
	s.Movimentos = append([]model.MovimentoCaixa(nil), p.movimentos...)
	s.Despesas = append([]model.Despesa(nil), p.despesas...)
	return &s
}

// Totais computes the running totals of the tracked session.
func (p *Projecao) Totais() (model.Totais, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.sessao == nil {
		return model.Totais{}, false
	}
	return model.CalcularTotais(p.sessao.SaldoInicial, p.movimentos, p.despesas), true
}

// Movimentos returns the tracked movements, optionally filtered by type and
// payment method.
func (p *Projecao) Movimentos(tipo, forma string) []model.MovimentoCaixa {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.MovimentoCaixa, 0, len(p.movimentos))
	for _, m := range p.movimentos {
		if tipo != "" && string(m.Tipo) != tipo {
			continue
		}
		if forma != "" && (m.FormaPagamento == nil || string(*m.FormaPagamento) != forma) {
			continue
		}
		out = append(out, m)
	}
	return out
}
