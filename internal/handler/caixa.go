package handler

import (
	"net/http"
	"strconv"

	"belezapos/internal/apierror"
	"belezapos/internal/dto"
	"belezapos/internal/middleware"
	"belezapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CaixaHandler exposes the cash-drawer endpoints.
type CaixaHandler struct {
	svc service.CaixaService
}

func NewCaixaHandler(svc service.CaixaService) *CaixaHandler {
	return &CaixaHandler{svc: svc}
}

func (h *CaixaHandler) ator(c *gin.Context) (service.Ator, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierror.New("Não autenticado"))
		return service.Ator{}, false
	}
	return claims.Ator(), true
}

// Abrir godoc
// @Summary      Abrir sessão de caixa
// @Description  Abre a sessão diária do caixa com o saldo inicial declarado
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Param        body body dto.AbrirCaixaRequest true "Dados de abertura"
// @Success      201 {object} dto.SessaoResponse
// @Failure      409 {object} apierror.APIError "Já existe sessão aberta"
// @Security     BearerAuth
// @Router       /v1/caixa/abrir [post]
func (h *CaixaHandler) Abrir(c *gin.Context) {
	ator, ok := h.ator(c)
	if !ok {
		return
	}
	var req dto.AbrirCaixaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), ator, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Fechar godoc
// @Summary      Fechar sessão de caixa
// @Description  Fecha a sessão aberta, confrontando o valor contado com o esperado
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Param        body body dto.FecharCaixaRequest true "Contagem cega"
// @Success      200 {object} dto.FecharCaixaResponse
// @Failure      409 {object} apierror.APIError "Não há sessão aberta"
// @Security     BearerAuth
// @Router       /v1/caixa/fechar [post]
func (h *CaixaHandler) Fechar(c *gin.Context) {
	ator, ok := h.ator(c)
	if !ok {
		return
	}
	var req dto.FecharCaixaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Fechar(c.Request.Context(), ator, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Movimento godoc
// @Summary      Registrar movimento
// @Description  Registra uma entrada ou saída avulsa no caixa
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Param        body body dto.MovimentoRequest true "Movimento"
// @Success      201 {object} dto.MovimentoResponse
// @Security     BearerAuth
// @Router       /v1/caixa/movimento [post]
func (h *CaixaHandler) Movimento(c *gin.Context) {
	ator, ok := h.ator(c)
	if !ok {
		return
	}
	var req dto.MovimentoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarMovimento(c.Request.Context(), ator, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Sangria godoc
// @Summary      Sangria
// @Description  Retira dinheiro físico da gaveta, limitado ao saldo em dinheiro
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Param        body body dto.SangriaRequest true "Sangria"
// @Success      201 {object} dto.MovimentoResponse
// @Failure      422 {object} apierror.APIError "Saldo insuficiente"
// @Security     BearerAuth
// @Router       /v1/caixa/sangria [post]
func (h *CaixaHandler) Sangria(c *gin.Context) {
	ator, ok := h.ator(c)
	if !ok {
		return
	}
	var req dto.SangriaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarSangria(c.Request.Context(), ator, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Reforco godoc
// @Summary      Reforço de troco
// @Description  Adiciona dinheiro físico à gaveta
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Param        body body dto.ReforcoRequest true "Reforço"
// @Success      201 {object} dto.MovimentoResponse
// @Security     BearerAuth
// @Router       /v1/caixa/reforco [post]
func (h *CaixaHandler) Reforco(c *gin.Context) {
	ator, ok := h.ator(c)
	if !ok {
		return
	}
	var req dto.ReforcoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarReforco(c.Request.Context(), ator, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Despesa godoc
// @Summary      Registrar despesa
// @Description  Registra uma despesa paga pelo caixa ou pelo dono
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Param        body body dto.DespesaRequest true "Despesa"
// @Success      201 {object} dto.DespesaResponse
// @Security     BearerAuth
// @Router       /v1/caixa/despesa [post]
func (h *CaixaHandler) Despesa(c *gin.Context) {
	ator, ok := h.ator(c)
	if !ok {
		return
	}
	var req dto.DespesaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarDespesa(c.Request.Context(), ator, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Pagamento godoc
// @Summary      Registrar pagamento de comanda
// @Description  Lança no caixa o pagamento concluído de uma comanda
// @Tags         caixa
// @Accept       json
// @Produce      json
// @Param        body body dto.PagamentoRequest true "Pagamento"
// @Success      201 {object} dto.MovimentoResponse
// @Security     BearerAuth
// @Router       /v1/caixa/pagamento [post]
func (h *CaixaHandler) Pagamento(c *gin.Context) {
	ator, ok := h.ator(c)
	if !ok {
		return
	}
	var req dto.PagamentoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarPagamento(c.Request.Context(), ator, req)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Atual godoc
// @Summary      Sessão atual
// @Description  Retorna a sessão aberta com seus totais, ou 404 se o caixa está fechado
// @Tags         caixa
// @Produce      json
// @Success      200 {object} dto.SessaoResponse
// @Failure      404 {object} apierror.APIError
// @Security     BearerAuth
// @Router       /v1/caixa/atual [get]
func (h *CaixaHandler) Atual(c *gin.Context) {
	resp, err := h.svc.SessaoAtual(c.Request.Context())
	if err != nil {
		respondErro(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New("Não há sessão de caixa aberta"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Totais godoc
// @Summary      Totais da sessão atual
// @Tags         caixa
// @Produce      json
// @Success      200 {object} dto.TotaisResponse
// @Security     BearerAuth
// @Router       /v1/caixa/totais [get]
func (h *CaixaHandler) Totais(c *gin.Context) {
	resp, err := h.svc.TotaisAtuais(c.Request.Context())
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Movimentos godoc
// @Summary      Movimentos da sessão atual
// @Tags         caixa
// @Produce      json
// @Param        tipo            query string false "Filtro por tipo (entrada|saida|sangria|reforco)"
// @Param        forma_pagamento query string false "Filtro por forma de pagamento"
// @Success      200 {array} dto.MovimentoResponse
// @Security     BearerAuth
// @Router       /v1/caixa/movimentos [get]
func (h *CaixaHandler) Movimentos(c *gin.Context) {
	resp, err := h.svc.ListarMovimentos(c.Request.Context(), c.Query("tipo"), c.Query("forma_pagamento"))
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historico godoc
// @Summary      Histórico de sessões fechadas
// @Tags         caixa
// @Produce      json
// @Param        page  query int false "Página (default 1)"
// @Param        limit query int false "Itens por página (default 20, max 100)"
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /v1/caixa/historial [get]
func (h *CaixaHandler) Historico(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessoes, total, err := h.svc.Historico(c.Request.Context(), page, limit)
	if err != nil {
		respondErro(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": sessoes,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Fechamento godoc
// @Summary      Fechamento de uma sessão
// @Description  Retorna o registro de conferência de uma sessão fechada
// @Tags         caixa
// @Produce      json
// @Param        id path string true "ID da sessão"
// @Success      200 {object} dto.FechamentoResponse
// @Failure      404 {object} apierror.APIError
// @Security     BearerAuth
// @Router       /v1/caixa/{id}/fechamento [get]
func (h *CaixaHandler) Fechamento(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de sessão inválido"))
		return
	}
	resp, err := h.svc.ObterFechamento(c.Request.Context(), id)
	if err != nil {
		respondErro(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New("Fechamento não encontrado"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
