package repository

import (
	"context"
	"errors"
	"time"

	"belezapos/internal/apierror"
	"belezapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaixaRepository is the durable side of the ledger. Every mutating method is
// a single atomic write; state-machine violations come back as typed domain
// errors, anything else (driver/transport) bubbles up raw so the sync
// coordinator can classify it as a network failure.
type CaixaRepository interface {
	CreateSessao(ctx context.Context, s *model.SessaoCaixa) error
	FindSessaoAberta(ctx context.Context) (*model.SessaoCaixa, error)
	FindSessaoByID(ctx context.Context, id uuid.UUID) (*model.SessaoCaixa, error)
	FecharSessao(ctx context.Context, contado decimal.Decimal, observacoes *string, closedAt time.Time) (*model.SessaoCaixa, *model.FechamentoCaixa, error)
	AppendMovimento(ctx context.Context, m *model.MovimentoCaixa) error
	AppendDespesa(ctx context.Context, d *model.Despesa) error
	ListMovimentos(ctx context.Context, sessaoID uuid.UUID, tipo, forma string) ([]model.MovimentoCaixa, error)
	ListDespesas(ctx context.Context, sessaoID uuid.UUID) ([]model.Despesa, error)
	FindFechamento(ctx context.Context, sessaoID uuid.UUID) (*model.FechamentoCaixa, error)
	ListSessoesFechadas(ctx context.Context, page, limit int) ([]model.SessaoCaixa, int64, error)
}

type caixaRepo struct{ db *gorm.DB }

func NewCaixaRepository(db *gorm.DB) CaixaRepository { return &caixaRepo{db: db} }

// CreateSessao inserts a new open session. The partial unique index on
// sessoes_caixa(status) WHERE status='aberta' is what enforces the single-open
// invariant: when two terminals race, exactly one insert succeeds and the
// loser gets a session-state error, never a second open session.
func (r *caixaRepo) CreateSessao(ctx context.Context, s *model.SessaoCaixa) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apierror.EstadoSessao("já existe uma sessão de caixa aberta")
	}
	return err
}

// FindSessaoAberta returns the open session with its ledger preloaded, or
// (nil, nil) when the drawer is closed. Side-effect-free; used both by reads
// and by crash/restart rehydration.
func (r *caixaRepo) FindSessaoAberta(ctx context.Context) (*model.SessaoCaixa, error) {
	var s model.SessaoCaixa
	err := r.db.WithContext(ctx).
		Preload("Movimentos").
		Preload("Despesas").
		Where("status = ?", model.SessaoAberta).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *caixaRepo) FindSessaoByID(ctx context.Context, id uuid.UUID) (*model.SessaoCaixa, error) {
	var s model.SessaoCaixa
	err := r.db.WithContext(ctx).
		Preload("Movimentos").
		Preload("Despesas").
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FecharSessao closes the open session and records the reconciliation outcome
// in one transaction. Expected cash is recomputed from the durable ledger
// under a row lock, so a movement landing concurrently either makes it into
// the expectation or fails its own open-session check, never half of each.
func (r *caixaRepo) FecharSessao(ctx context.Context, contado decimal.Decimal, observacoes *string, closedAt time.Time) (*model.SessaoCaixa, *model.FechamentoCaixa, error) {
	var sessao model.SessaoCaixa
	var fechamento model.FechamentoCaixa

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ?", model.SessaoAberta).
			First(&sessao).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.EstadoSessao("não há sessão de caixa aberta")
		}
		if err != nil {
			return err
		}

		var movimentos []model.MovimentoCaixa
		if err := tx.Where("sessao_id = ?", sessao.ID).Find(&movimentos).Error; err != nil {
			return err
		}
		var despesas []model.Despesa
		if err := tx.Where("sessao_id = ?", sessao.ID).Find(&despesas).Error; err != nil {
			return err
		}

		totais := model.CalcularTotais(sessao.SaldoInicial, movimentos, despesas)
		fechamento = model.NovoFechamento(sessao.ID, totais.SaldoDinheiro, contado, closedAt)

		res := tx.Model(&model.SessaoCaixa{}).
			Where("id = ? AND status = ?", sessao.ID, model.SessaoAberta).
			Updates(map[string]interface{}{
				"status":        model.SessaoFechada,
				"saldo_contado": contado,
				"observacoes":   observacoes,
				"closed_at":     closedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apierror.EstadoSessao("a sessão já está fechada")
		}

		// Write-once: the fechamento PK is the session id.
		if err := tx.Create(&fechamento).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierror.EstadoSessao("fechamento já registrado para esta sessão")
			}
			return err
		}

		sessao.Status = model.SessaoFechada
		sessao.SaldoContado = &contado
		sessao.Observacoes = observacoes
		sessao.ClosedAt = &closedAt
		sessao.Movimentos = movimentos
		sessao.Despesas = despesas
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &sessao, &fechamento, nil
}

// AppendMovimento appends one immutable movement. The whole check (session
// open, sangria within cash-on-hand) runs in the same transaction as the
// insert, with the session row locked, so two concurrent sangrias cannot
// drive the drawer negative between read and write.
//
// Replays are a no-op: the client-generated id conflicts, nothing is
// inserted, and the stored row is returned in place of the duplicate.
func (r *caixaRepo) AppendMovimento(ctx context.Context, m *model.MovimentoCaixa) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sessao model.SessaoCaixa
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sessao, "id = ?", m.SessaoID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.EstadoSessao("sessão de caixa não encontrada")
		}
		if err != nil {
			return err
		}

		// A replayed command may arrive after its session closed; it must
		// still dedupe before the state check so the retry stays a no-op.
		var existente model.MovimentoCaixa
		if err := tx.First(&existente, "id = ?", m.ID).Error; err == nil {
			*m = existente
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if sessao.Status != model.SessaoAberta {
			return apierror.EstadoSessao("a sessão de caixa não está aberta")
		}

		if m.Tipo == model.TipoSangria {
			saldo, err := saldoDinheiroTx(tx, &sessao)
			if err != nil {
				return err
			}
			if m.Valor.GreaterThan(saldo) {
				return apierror.SaldoInsuficiente("sangria maior que o saldo em dinheiro")
			}
		}

		return tx.Create(m).Error
	})
}

// AppendDespesa appends an expense, pinned to the session recorded when it
// was created. A pago_por=caixa despesa replayed after its session closed is
// a state conflict, never a debit on whichever session is open by then; a
// pago_por=dono despesa in the same spot is stored detached, since it does
// not touch the drawer.
func (r *caixaRepo) AppendDespesa(ctx context.Context, d *model.Despesa) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existente model.Despesa
		if err := tx.First(&existente, "id = ?", d.ID).Error; err == nil {
			*d = existente
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if d.SessaoID == nil {
			if d.PagoPor == model.PagoPorCaixa {
				return apierror.EstadoSessao("despesa paga pelo caixa exige sessão aberta")
			}
			return tx.Create(d).Error
		}

		var sessao model.SessaoCaixa
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sessao, "id = ?", *d.SessaoID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.EstadoSessao("sessão de caixa não encontrada")
		}
		if err != nil {
			return err
		}
		if sessao.Status != model.SessaoAberta {
			if d.PagoPor == model.PagoPorDono {
				d.SessaoID = nil
				return tx.Create(d).Error
			}
			return apierror.EstadoSessao("a sessão de caixa não está aberta")
		}

		return tx.Create(d).Error
	})
}

func (r *caixaRepo) ListMovimentos(ctx context.Context, sessaoID uuid.UUID, tipo, forma string) ([]model.MovimentoCaixa, error) {
	q := r.db.WithContext(ctx).Where("sessao_id = ?", sessaoID)
	if tipo != "" {
		q = q.Where("tipo = ?", tipo)
	}
	if forma != "" {
		q = q.Where("forma_pagamento = ?", forma)
	}
	var movs []model.MovimentoCaixa
	err := q.Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *caixaRepo) ListDespesas(ctx context.Context, sessaoID uuid.UUID) ([]model.Despesa, error) {
	var despesas []model.Despesa
	err := r.db.WithContext(ctx).Where("sessao_id = ?", sessaoID).Order("created_at ASC").Find(&despesas).Error
	return despesas, err
}

func (r *caixaRepo) FindFechamento(ctx context.Context, sessaoID uuid.UUID) (*model.FechamentoCaixa, error) {
	var f model.FechamentoCaixa
	err := r.db.WithContext(ctx).First(&f, "sessao_id = ?", sessaoID).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *caixaRepo) ListSessoesFechadas(ctx context.Context, page, limit int) ([]model.SessaoCaixa, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&model.SessaoCaixa{}).Where("status = ?", model.SessaoFechada)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sessoes []model.SessaoCaixa
	err := base.Order("closed_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sessoes).Error
	return sessoes, total, err
}

// saldoDinheiroTx computes cash-on-hand with plain SQL sums inside the
// caller's transaction. Must agree with model.CalcularTotais for the same
// ledger: both are sums over the same multiset.
func saldoDinheiroTx(tx *gorm.DB, sessao *model.SessaoCaixa) (decimal.Decimal, error) {
	var movSum decimal.Decimal
	err := tx.Model(&model.MovimentoCaixa{}).
		Where("sessao_id = ?", sessao.ID).
		Select(`COALESCE(SUM(CASE
			WHEN tipo = 'reforco' THEN valor
			WHEN tipo = 'entrada' AND forma_pagamento = 'dinheiro' THEN valor
			WHEN tipo = 'sangria' THEN -valor
			WHEN tipo = 'saida' AND forma_pagamento = 'dinheiro' THEN -valor
			ELSE 0 END), 0)`).
		Row().Scan(&movSum)
	if err != nil {
		return decimal.Zero, err
	}

	var despesaSum decimal.Decimal
	err = tx.Model(&model.Despesa{}).
		Where("sessao_id = ? AND pago_por = ?", sessao.ID, model.PagoPorCaixa).
		Select("COALESCE(SUM(valor), 0)").
		Row().Scan(&despesaSum)
	if err != nil {
		return decimal.Zero, err
	}

	return sessao.SaldoInicial.Add(movSum).Sub(despesaSum), nil
}
