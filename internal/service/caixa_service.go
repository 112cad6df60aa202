package service

import (
	"context"
	"errors"
	"time"

	"belezapos/internal/apierror"
	"belezapos/internal/capability"
	"belezapos/internal/config"
	"belezapos/internal/dto"
	"belezapos/internal/infra"
	"belezapos/internal/model"
	"belezapos/internal/offline"
	"belezapos/internal/repository"
	"belezapos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ator identifies who is acting and from which device, resolved by the auth
// middleware from the JWT claims.
type Ator struct {
	UsuarioID   uuid.UUID
	Papel       string
	Dispositivo capability.Dispositivo
}

// CaixaService is the application façade of the cash ledger. All mutations go
// through the sync coordinator (optimistic local apply + durable write or
// queue); current-session reads are served from the projection so they work
// offline, while history and closing reports read the durable store directly.
type CaixaService interface {
	Abrir(ctx context.Context, ator Ator, req dto.AbrirCaixaRequest) (*dto.SessaoResponse, error)
	Fechar(ctx context.Context, ator Ator, req dto.FecharCaixaRequest) (*dto.FecharCaixaResponse, error)
	RegistrarMovimento(ctx context.Context, ator Ator, req dto.MovimentoRequest) (*dto.MovimentoResponse, error)
	RegistrarSangria(ctx context.Context, ator Ator, req dto.SangriaRequest) (*dto.MovimentoResponse, error)
	RegistrarReforco(ctx context.Context, ator Ator, req dto.ReforcoRequest) (*dto.MovimentoResponse, error)
	RegistrarDespesa(ctx context.Context, ator Ator, req dto.DespesaRequest) (*dto.DespesaResponse, error)
	RegistrarPagamento(ctx context.Context, ator Ator, req dto.PagamentoRequest) (*dto.MovimentoResponse, error)
	SessaoAtual(ctx context.Context) (*dto.SessaoResponse, error)
	TotaisAtuais(ctx context.Context) (*dto.TotaisResponse, error)
	ListarMovimentos(ctx context.Context, tipo, forma string) ([]dto.MovimentoResponse, error)
	Historico(ctx context.Context, page, limit int) ([]dto.SessaoResponse, int64, error)
	ObterFechamento(ctx context.Context, sessaoID uuid.UUID) (*dto.FechamentoResponse, error)
}

type caixaService struct {
	coord      *offline.Coordinator
	repo       repository.CaixaRepository
	dispatcher *worker.Dispatcher
	cfg        *config.Config
}

// NewCaixaService builds the service. Dispatcher and cfg may be nil in tests;
// closing reports are then skipped.
func NewCaixaService(coord *offline.Coordinator, repo repository.CaixaRepository, dispatcher *worker.Dispatcher, cfg *config.Config) CaixaService {
	return &caixaService{coord: coord, repo: repo, dispatcher: dispatcher, cfg: cfg}
}

func (s *caixaService) Abrir(ctx context.Context, ator Ator, req dto.AbrirCaixaRequest) (*dto.SessaoResponse, error) {
	if !ator.capacidades().Permite(capability.Abrir) {
		return nil, apierror.Permissao("dispositivo sem permissão para abrir o caixa")
	}
	if req.SaldoInicial.IsNegative() {
		return nil, apierror.Validacao("saldo inicial não pode ser negativo")
	}

	sessao := model.SessaoCaixa{
		ID:           uuid.New(),
		UsuarioID:    ator.UsuarioID,
		Dispositivo:  ator.Dispositivo.ID,
		SaldoInicial: req.SaldoInicial,
		Observacoes:  req.Observacoes,
		Status:       model.SessaoAberta,
		OpenedAt:     time.Now(),
	}
	cmd, err := offline.NovoComando(sessao.ID, offline.ComandoAbrir,
		ator.Dispositivo.ID, string(ator.Dispositivo.Classe), ator.Papel,
		offline.AbrirPayload{Sessao: sessao})
	if err != nil {
		return nil, err
	}
	if err := s.coord.Executar(ctx, cmd); err != nil {
		return nil, err
	}

	atual := s.coord.Projecao().Sessao()
	if atual == nil {
		atual = &sessao
	}
	totais, _ := s.coord.Projecao().Totais()
	resp := sessaoResponse(atual, &totais)
	return &resp, nil
}

func (s *caixaService) Fechar(ctx context.Context, ator Ator, req dto.FecharCaixaRequest) (*dto.FecharCaixaResponse, error) {
	if !ator.capacidades().Permite(capability.Fechar) {
		return nil, apierror.Permissao("dispositivo sem permissão para fechar o caixa")
	}
	if req.SaldoContado.IsNegative() {
		return nil, apierror.Validacao("saldo contado não pode ser negativo")
	}

	sessao := s.coord.Projecao().Sessao()
	if sessao == nil || sessao.Status != model.SessaoAberta {
		return nil, apierror.EstadoSessao("não há sessão de caixa aberta")
	}
	totais, _ := s.coord.Projecao().Totais()
	closedAt := time.Now()

	cmd, err := offline.NovoComando(uuid.New(), offline.ComandoFechar,
		ator.Dispositivo.ID, string(ator.Dispositivo.Classe), ator.Papel,
		offline.FecharPayload{SaldoContado: req.SaldoContado, Observacoes: req.Observacoes, ClosedAt: closedAt})
	if err != nil {
		return nil, err
	}
	if err := s.coord.Executar(ctx, cmd); err != nil {
		return nil, err
	}

	// Optimistic reconciliation from the local view; replaced by the
	// authoritative record when the store already applied the close. A close
	// still sitting in the queue keeps the optimistic numbers.
	fechamento := model.NovoFechamento(sessao.ID, totais.SaldoDinheiro, req.SaldoContado, closedAt)
	fechada := *sessao
	fechada.Status = model.SessaoFechada
	contado := req.SaldoContado
	fechada.SaldoContado = &contado
	fechada.Observacoes = req.Observacoes
	fechada.ClosedAt = &closedAt

	if pend, err := s.coord.Pendentes(ctx); err == nil && pend == 0 && s.coord.Online() {
		if f, err := s.repo.FindFechamento(ctx, sessao.ID); err == nil {
			fechamento = *f
		}
		if sf, err := s.repo.FindSessaoByID(ctx, sessao.ID); err == nil {
			fechada = *sf
			totais = model.CalcularTotais(sf.SaldoInicial, sf.Movimentos, sf.Despesas)
		}
	}

	s.emitirRelatorio(ctx, &fechada, &fechamento, totais)

	return &dto.FecharCaixaResponse{
		Sessao:     sessaoResponse(&fechada, &totais),
		Fechamento: fechamentoResponse(&fechamento),
	}, nil
}

func (s *caixaService) RegistrarMovimento(ctx context.Context, ator Ator, req dto.MovimentoRequest) (*dto.MovimentoResponse, error) {
	if !ator.capacidades().Permite(capability.Movimento) {
		return nil, apierror.Permissao("dispositivo sem permissão para registrar movimentos")
	}
	var forma *model.FormaPagamento
	if req.FormaPagamento != nil {
		f := model.FormaPagamento(*req.FormaPagamento)
		forma = &f
	}
	return s.submeterMovimento(ctx, ator, req.ID, model.TipoMovimento(req.Tipo), req.Categoria, forma, req.Valor, req.Descricao)
}

func (s *caixaService) RegistrarSangria(ctx context.Context, ator Ator, req dto.SangriaRequest) (*dto.MovimentoResponse, error) {
	if !ator.capacidades().Permite(capability.Sangria) {
		return nil, apierror.Permissao("dispositivo sem permissão para sangria")
	}
	if req.Motivo == "" {
		return nil, apierror.Validacao("sangria exige motivo")
	}
	return s.submeterMovimento(ctx, ator, req.ID, model.TipoSangria, "sangria", nil, req.Valor, req.Motivo)
}

func (s *caixaService) RegistrarReforco(ctx context.Context, ator Ator, req dto.ReforcoRequest) (*dto.MovimentoResponse, error) {
	if !ator.capacidades().Permite(capability.Reforco) {
		return nil, apierror.Permissao("dispositivo sem permissão para reforço")
	}
	if req.Motivo == "" {
		return nil, apierror.Validacao("reforço exige motivo")
	}
	return s.submeterMovimento(ctx, ator, req.ID, model.TipoReforco, "reforco", nil, req.Valor, req.Motivo)
}

func (s *caixaService) RegistrarPagamento(ctx context.Context, ator Ator, req dto.PagamentoRequest) (*dto.MovimentoResponse, error) {
	if !ator.capacidades().Permite(capability.Movimento) {
		return nil, apierror.Permissao("dispositivo sem permissão para registrar pagamentos")
	}
	forma := model.FormaPagamento(req.FormaPagamento)
	return s.submeterMovimento(ctx, ator, req.ID, model.TipoEntrada, "venda", &forma, req.Valor,
		"Pagamento da comanda "+req.ComandaID)
}

func (s *caixaService) submeterMovimento(ctx context.Context, ator Ator, rawID string, tipo model.TipoMovimento, categoria string, forma *model.FormaPagamento, valor decimal.Decimal, descricao string) (*dto.MovimentoResponse, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apierror.Validacao("id do movimento inválido")
	}
	if !valor.IsPositive() {
		return nil, apierror.Validacao("valor deve ser maior que zero")
	}

	sessao := s.coord.Projecao().Sessao()
	if sessao == nil || sessao.Status != model.SessaoAberta {
		return nil, apierror.EstadoSessao("não há sessão de caixa aberta")
	}

	m := model.MovimentoCaixa{
		ID:             id,
		SessaoID:       sessao.ID,
		Tipo:           tipo,
		Categoria:      categoria,
		FormaPagamento: forma,
		Valor:          valor,
		Descricao:      descricao,
		Dispositivo:    ator.Dispositivo.ID,
		CreatedAt:      time.Now(),
	}
	cmd, err := offline.NovoComando(id, offline.ComandoMovimento,
		ator.Dispositivo.ID, string(ator.Dispositivo.Classe), ator.Papel,
		offline.MovimentoPayload{Movimento: m})
	if err != nil {
		return nil, err
	}
	if err := s.coord.Executar(ctx, cmd); err != nil {
		return nil, err
	}
	resp := movimentoResponse(m)
	return &resp, nil
}

func (s *caixaService) RegistrarDespesa(ctx context.Context, ator Ator, req dto.DespesaRequest) (*dto.DespesaResponse, error) {
	if !ator.capacidades().Permite(capability.Despesa) {
		return nil, apierror.Permissao("dispositivo sem permissão para registrar despesas")
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, apierror.Validacao("id da despesa inválido")
	}
	if !req.Valor.IsPositive() {
		return nil, apierror.Validacao("valor deve ser maior que zero")
	}

	d := model.Despesa{
		ID:          id,
		Descricao:   req.Descricao,
		Categoria:   req.Categoria,
		Valor:       req.Valor,
		PagoPor:     model.PagoPor(req.PagoPor),
		Observacoes: req.Observacoes,
		Dispositivo: ator.Dispositivo.ID,
		CreatedAt:   time.Now(),
	}
	if sessao := s.coord.Projecao().Sessao(); sessao != nil && sessao.Status == model.SessaoAberta {
		sessaoID := sessao.ID
		d.SessaoID = &sessaoID
	}

	cmd, err := offline.NovoComando(id, offline.ComandoDespesa,
		ator.Dispositivo.ID, string(ator.Dispositivo.Classe), ator.Papel,
		offline.DespesaPayload{Despesa: d})
	if err != nil {
		return nil, err
	}
	if err := s.coord.Executar(ctx, cmd); err != nil {
		return nil, err
	}
	resp := despesaResponse(d)
	return &resp, nil
}

// SessaoAtual returns the projected current session, or (nil, nil) when the
// drawer is closed.
func (s *caixaService) SessaoAtual(ctx context.Context) (*dto.SessaoResponse, error) {
	sessao := s.coord.Projecao().Sessao()
	if sessao == nil {
		return nil, nil
	}
	totais, _ := s.coord.Projecao().Totais()
	resp := sessaoResponse(sessao, &totais)
	return &resp, nil
}

func (s *caixaService) TotaisAtuais(ctx context.Context) (*dto.TotaisResponse, error) {
	totais, ok := s.coord.Projecao().Totais()
	if !ok {
		return nil, apierror.EstadoSessao("não há sessão de caixa aberta")
	}
	resp := totaisResponse(totais)
	return &resp, nil
}

func (s *caixaService) ListarMovimentos(ctx context.Context, tipo, forma string) ([]dto.MovimentoResponse, error) {
	if s.coord.Projecao().Sessao() == nil {
		return nil, apierror.EstadoSessao("não há sessão de caixa aberta")
	}
	movs := s.coord.Projecao().Movimentos(tipo, forma)
	out := make([]dto.MovimentoResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, movimentoResponse(m))
	}
	return out, nil
}

func (s *caixaService) Historico(ctx context.Context, page, limit int) ([]dto.SessaoResponse, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sessoes, total, err := s.repo.ListSessoesFechadas(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.SessaoResponse, 0, len(sessoes))
	for i := range sessoes {
		out = append(out, sessaoResponse(&sessoes[i], nil))
	}
	return out, total, nil
}

// ObterFechamento returns the reconciliation record, or (nil, nil) when the
// session has no fechamento yet.
func (s *caixaService) ObterFechamento(ctx context.Context, sessaoID uuid.UUID) (*dto.FechamentoResponse, error) {
	f, err := s.repo.FindFechamento(ctx, sessaoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resp := fechamentoResponse(f)
	return &resp, nil
}

// emitirRelatorio generates the closing-report PDF and queues the owner email.
// Best effort: a failure here never fails the close itself.
func (s *caixaService) emitirRelatorio(ctx context.Context, sessao *model.SessaoCaixa, fechamento *model.FechamentoCaixa, totais model.Totais) {
	if s.dispatcher == nil || s.cfg == nil {
		return
	}
	pdfPath, err := infra.GerarRelatorioFechamento(sessao, fechamento, totais, s.cfg.PDFStoragePath)
	if err != nil {
		log.Error().Err(err).Str("sessao_id", sessao.ID.String()).Msg("geração do relatório de fechamento falhou")
		pdfPath = ""
	}
	payload := worker.EmailFechamentoPayload{
		SessaoID: sessao.ID.String(),
		Para:     s.cfg.OwnerEmail,
		Assunto:  "Fechamento de caixa " + fechamento.ClosedAt.Format("02/01/2006"),
		Corpo: "Resultado: " + fechamento.Resultado +
			"\nEsperado: R$ " + fechamento.ValorEsperado.StringFixed(2) +
			"\nContado: R$ " + fechamento.ValorContado.StringFixed(2) +
			"\nDiferença: R$ " + fechamento.Diferenca.StringFixed(2),
		PDFPath: pdfPath,
	}
	if err := s.dispatcher.EnqueueEmailFechamento(ctx, payload); err != nil {
		log.Error().Err(err).Str("sessao_id", sessao.ID.String()).Msg("enfileiramento do email de fechamento falhou")
	}
}

func (a Ator) capacidades() capability.Conjunto {
	return capability.Para(a.Dispositivo.Classe, a.Papel)
}

func acaoDoMovimento(tipo model.TipoMovimento) capability.Acao {
	switch tipo {
	case model.TipoSangria:
		return capability.Sangria
	case model.TipoReforco:
		return capability.Reforco
	default:
		return capability.Movimento
	}
}
