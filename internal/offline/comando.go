package offline

import (
	"encoding/json"
	"time"

	"belezapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TipoComando identifies which ledger mutation a queued command carries.
type TipoComando string

const (
	ComandoAbrir     TipoComando = "abrir_sessao"
	ComandoFechar    TipoComando = "fechar_sessao"
	ComandoMovimento TipoComando = "movimento"
	ComandoDespesa   TipoComando = "despesa"
)

// Comando is the serializable envelope for a mutating ledger command. The ID
// is the idempotency key (for movements and sessions it equals the entity id),
// so a retried flush can never double-apply. Classe/Papel travel with the
// command because the capability gate is re-checked at the durable boundary,
// not only at submission.
type Comando struct {
	ID          uuid.UUID       `json:"id"`
	Tipo        TipoComando     `json:"tipo"`
	Dispositivo string          `json:"dispositivo"`
	Classe      string          `json:"classe"`
	Papel       string          `json:"papel"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

type AbrirPayload struct {
	Sessao model.SessaoCaixa `json:"sessao"`
}

type FecharPayload struct {
	SaldoContado decimal.Decimal `json:"saldo_contado"`
	Observacoes  *string         `json:"observacoes"`
	ClosedAt     time.Time       `json:"closed_at"`
}

type MovimentoPayload struct {
	Movimento model.MovimentoCaixa `json:"movimento"`
}

type DespesaPayload struct {
	Despesa model.Despesa `json:"despesa"`
}

// NovoComando wraps a typed payload into a command envelope.
func NovoComando(id uuid.UUID, tipo TipoComando, dispositivo, classe, papel string, payload interface{}) (Comando, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Comando{}, err
	}
	return Comando{
		ID:          id,
		Tipo:        tipo,
		Dispositivo: dispositivo,
		Classe:      classe,
		Papel:       papel,
		Payload:     data,
		CreatedAt:   time.Now(),
	}, nil
}
