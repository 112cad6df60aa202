package handler

import (
	"net/http"
	"time"

	"belezapos/internal/apierror"
	"belezapos/internal/dto"
	"belezapos/internal/offline"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SyncHandler exposes the connectivity status and the manual refresh trigger.
type SyncHandler struct {
	coord *offline.Coordinator
}

func NewSyncHandler(coord *offline.Coordinator) *SyncHandler {
	return &SyncHandler{coord: coord}
}

// Status godoc
// @Summary      Estado da sincronização
// @Description  Informa se a loja está online, quando sincronizou pela última vez e quantos comandos aguardam reenvio
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.SyncStatusResponse
// @Security     BearerAuth
// @Router       /v1/sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	pendentes, err := h.coord.Pendentes(c.Request.Context())
	if err != nil {
		log.Warn().Err(err).Msg("leitura de pendências falhou")
	}

	var lastSync *string
	if t := h.coord.UltimaSincronizacao(); t != nil {
		s := t.Format(time.RFC3339)
		lastSync = &s
	}

	c.JSON(http.StatusOK, dto.SyncStatusResponse{
		Online:     h.coord.Online(),
		LastSyncAt: lastSync,
		Pendentes:  pendentes,
	})
}

// Refresh godoc
// @Summary      Sincronização manual
// @Description  Força um flush da fila pendente e a releitura da sessão a partir do armazenamento durável
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.SyncStatusResponse
// @Failure      503 {object} apierror.APIError
// @Security     BearerAuth
// @Router       /v1/sync/refresh [post]
func (h *SyncHandler) Refresh(c *gin.Context) {
	if err := h.coord.Atualizar(c.Request.Context()); err != nil {
		log.Warn().Err(err).Msg("sincronização manual falhou")
		respondErro(c, apierror.Rede("loja offline, sincronização adiada"))
		return
	}
	h.Status(c)
}
