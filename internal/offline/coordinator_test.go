package offline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"belezapos/internal/apierror"
	"belezapos/internal/infra"
	"belezapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore fakes the durable side: it is both the Aplicador and the Fonte,
// with a switch to simulate the store dropping off the network.
type memStore struct {
	mu        sync.Mutex
	offline   bool
	sessao    *model.SessaoCaixa
	aplicados map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{aplicados: make(map[uuid.UUID]int)}
}

func (s *memStore) setOffline(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = v
}

func (s *memStore) Aplicar(_ context.Context, c Comando) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return errors.New("dial tcp: connection refused")
	}

	switch c.Tipo {
	case ComandoAbrir:
		if s.sessao != nil && s.sessao.Status == model.SessaoAberta {
			return apierror.EstadoSessao("já existe uma sessão de caixa aberta")
		}
		var p AbrirPayload
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			return err
		}
		sess := p.Sessao
		s.sessao = &sess

	case ComandoFechar:
		if s.sessao == nil || s.sessao.Status != model.SessaoAberta {
			return apierror.EstadoSessao("não há sessão de caixa aberta")
		}
		s.sessao.Status = model.SessaoFechada

	case ComandoMovimento:
		if s.aplicados[c.ID] > 0 {
			return nil // idempotent replay
		}
		if s.sessao == nil || s.sessao.Status != model.SessaoAberta {
			return apierror.EstadoSessao("a sessão de caixa não está aberta")
		}
		var p MovimentoPayload
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			return err
		}
		s.sessao.Movimentos = append(s.sessao.Movimentos, p.Movimento)
	}

	s.aplicados[c.ID]++
	return nil
}

func (s *memStore) FindSessaoAberta(_ context.Context) (*model.SessaoCaixa, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, errors.New("dial tcp: connection refused")
	}
	if s.sessao == nil || s.sessao.Status != model.SessaoAberta {
		return nil, nil
	}
	sess := *s.sessao
	return &sess, nil
}

func novoCoordenadorTeste(t *testing.T, store *memStore) *Coordinator {
	t.Helper()
	return NewCoordinator(Config{
		Aplicador: store,
		Fonte:     store,
		Fila:      NewMemFila(),
		Breaker:   infra.NewCircuitBreaker(infra.DefaultCBConfig()),
		Intervalo: time.Hour, // loop is not started in tests
	})
}

func cmdAbrir(t *testing.T, dispositivo string) (Comando, uuid.UUID) {
	t.Helper()
	sessao := model.SessaoCaixa{
		ID:           uuid.New(),
		UsuarioID:    uuid.New(),
		Dispositivo:  dispositivo,
		SaldoInicial: decimal.RequireFromString("100.00"),
		Status:       model.SessaoAberta,
		OpenedAt:     time.Now(),
	}
	cmd, err := NovoComando(sessao.ID, ComandoAbrir, dispositivo, "terminal", "atendente", AbrirPayload{Sessao: sessao})
	require.NoError(t, err)
	return cmd, sessao.ID
}

func cmdMovimento(t *testing.T, dispositivo string, sessaoID uuid.UUID, valor string) Comando {
	t.Helper()
	forma := model.PagamentoDinheiro
	m := model.MovimentoCaixa{
		ID:             uuid.New(),
		SessaoID:       sessaoID,
		Tipo:           model.TipoEntrada,
		Categoria:      "venda",
		FormaPagamento: &forma,
		Valor:          decimal.RequireFromString(valor),
		Descricao:      "venda avulsa",
		Dispositivo:    dispositivo,
		CreatedAt:      time.Now(),
	}
	cmd, err := NovoComando(m.ID, ComandoMovimento, dispositivo, "terminal", "atendente", MovimentoPayload{Movimento: m})
	require.NoError(t, err)
	return cmd
}

func TestExecutarOnlineAplicaDireto(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	coord := novoCoordenadorTeste(t, store)

	cmd, sessaoID := cmdAbrir(t, "terminal-1")
	require.NoError(t, coord.Executar(ctx, cmd))

	pend, err := coord.Pendentes(ctx)
	require.NoError(t, err)
	assert.Zero(t, pend)
	require.NotNil(t, store.sessao)
	assert.Equal(t, sessaoID, store.sessao.ID)

	sessao := coord.Projecao().Sessao()
	require.NotNil(t, sessao)
	assert.Equal(t, sessaoID, sessao.ID)
	assert.NotNil(t, coord.UltimaSincronizacao())
}

func TestExecutarOfflineEnfileiraEReaplicaUmaVez(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	coord := novoCoordenadorTeste(t, store)

	abrir, sessaoID := cmdAbrir(t, "terminal-1")
	require.NoError(t, coord.Executar(ctx, abrir))

	store.setOffline(true)
	movimento := cmdMovimento(t, "terminal-1", sessaoID, "50.00")
	require.NoError(t, coord.Executar(ctx, movimento), "comando offline deve ser aceito")

	pend, err := coord.Pendentes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pend)
	assert.Empty(t, store.sessao.Movimentos, "nada chega ao armazenamento enquanto offline")

	// the local view already reflects the accepted write
	totais, ok := coord.Projecao().Totais()
	require.True(t, ok)
	assert.True(t, totais.SaldoDinheiro.Equal(decimal.RequireFromString("150.00")))

	store.setOffline(false)
	coord.flush(ctx)

	pend, err = coord.Pendentes(ctx)
	require.NoError(t, err)
	assert.Zero(t, pend)
	require.Len(t, store.sessao.Movimentos, 1)
	assert.Equal(t, 1, store.aplicados[movimento.ID], "replay aplica exatamente uma vez")

	require.NoError(t, coord.Atualizar(ctx))
	totais, ok = coord.Projecao().Totais()
	require.True(t, ok)
	assert.True(t, totais.SaldoDinheiro.Equal(decimal.RequireFromString("150.00")))
}

// A command issued after connectivity returns must wait behind the device's
// queued commands, or the replay would find a world that already moved past
// it (a close overtaking a queued movement would send the movement to the
// DLQ and the fechamento would miss it).
func TestComandoAposReconexaoRespeitaFilaPendente(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	coord := novoCoordenadorTeste(t, store)

	abrir, sessaoID := cmdAbrir(t, "terminal-1")
	require.NoError(t, coord.Executar(ctx, abrir))

	store.setOffline(true)
	movimento := cmdMovimento(t, "terminal-1", sessaoID, "40.00")
	require.NoError(t, coord.Executar(ctx, movimento))

	store.setOffline(false)
	fechar, err := NovoComando(uuid.New(), ComandoFechar, "terminal-1", "terminal", "atendente",
		FecharPayload{SaldoContado: decimal.RequireFromString("140.00"), ClosedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, coord.Executar(ctx, fechar))

	assert.Zero(t, store.aplicados[fechar.ID], "fechamento não fura a fila do dispositivo")
	pend, err := coord.Pendentes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pend)

	coord.flush(ctx)

	require.Len(t, store.sessao.Movimentos, 1, "movimento pendente chega antes do fechamento")
	assert.Equal(t, 1, store.aplicados[movimento.ID])
	assert.Equal(t, 1, store.aplicados[fechar.ID])
	assert.Equal(t, model.SessaoFechada, store.sessao.Status)

	fila := coord.fila.(*MemFila)
	assert.Empty(t, fila.Descartados)
	pend, err = coord.Pendentes(ctx)
	require.NoError(t, err)
	assert.Zero(t, pend)
}

func TestExecutarIdempotente(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	coord := novoCoordenadorTeste(t, store)

	abrir, sessaoID := cmdAbrir(t, "terminal-1")
	require.NoError(t, coord.Executar(ctx, abrir))

	movimento := cmdMovimento(t, "terminal-1", sessaoID, "25.00")
	require.NoError(t, coord.Executar(ctx, movimento))
	require.NoError(t, coord.Executar(ctx, movimento), "reenvio do mesmo comando é um no-op")

	assert.Equal(t, 1, len(store.sessao.Movimentos))
	totais, ok := coord.Projecao().Totais()
	require.True(t, ok)
	assert.True(t, totais.SaldoDinheiro.Equal(decimal.RequireFromString("125.00")))
}

func TestReplayConflitanteVaiParaDLQ(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	coord := novoCoordenadorTeste(t, store)

	abrir, sessaoID := cmdAbrir(t, "terminal-1")
	require.NoError(t, coord.Executar(ctx, abrir))

	store.setOffline(true)
	movimento := cmdMovimento(t, "terminal-1", sessaoID, "10.00")
	require.NoError(t, coord.Executar(ctx, movimento))

	// another device closed the session while this one was offline
	store.mu.Lock()
	store.sessao.Status = model.SessaoFechada
	store.offline = false
	store.mu.Unlock()

	coord.flush(ctx)

	pend, err := coord.Pendentes(ctx)
	require.NoError(t, err)
	assert.Zero(t, pend, "fila drena mesmo com conflito")

	fila := coord.fila.(*MemFila)
	require.Len(t, fila.Descartados, 1)
	assert.Equal(t, movimento.ID, fila.Descartados[0].ID)
}

func TestProjecaoRejeitaSangriaAcimaDoSaldo(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	coord := novoCoordenadorTeste(t, store)

	abrir, sessaoID := cmdAbrir(t, "terminal-1")
	require.NoError(t, coord.Executar(ctx, abrir))

	sangria := model.MovimentoCaixa{
		ID:       uuid.New(),
		SessaoID: sessaoID,
		Tipo:     model.TipoSangria,
		Valor:    decimal.RequireFromString("999.00"),
	}
	cmd, err := NovoComando(sangria.ID, ComandoMovimento, "terminal-1", "terminal", "atendente", MovimentoPayload{Movimento: sangria})
	require.NoError(t, err)

	err = coord.Executar(ctx, cmd)
	require.Error(t, err)
	assert.Equal(t, apierror.KindSaldoInsuficiente, apierror.KindOf(err))
	assert.Empty(t, store.sessao.Movimentos, "rejeição local não toca o armazenamento")
}

func TestAtualizarSemSessao(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	coord := novoCoordenadorTeste(t, store)

	require.NoError(t, coord.Atualizar(ctx))
	assert.Nil(t, coord.Projecao().Sessao())
	assert.NotNil(t, coord.UltimaSincronizacao())
	assert.True(t, coord.Online())
}
