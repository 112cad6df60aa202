package offline

import (
	"context"
	"errors"
	"sync"
	"time"

	"belezapos/internal/apierror"
	"belezapos/internal/infra"
	"belezapos/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CanalEventos is the Redis pub/sub channel notified after every durable
// ledger write. Subscribed terminals funnel the notification into the same
// refresh path as the periodic tick and the manual refresh endpoint.
const CanalEventos = "caixa:eventos"

// Aplicador writes a command to the durable store. Domain outcomes come back
// as *apierror.Error; anything else is treated as a transport failure.
type Aplicador interface {
	Aplicar(ctx context.Context, c Comando) error
}

// Fonte loads the authoritative open session for refreshes. Satisfied by the
// caixa repository.
type Fonte interface {
	FindSessaoAberta(ctx context.Context) (*model.SessaoCaixa, error)
}

// Config wires a Coordinator. RDB is optional: without it the coordinator
// still flushes and refreshes on the tick, it just misses cross-device push
// notifications.
type Config struct {
	Aplicador Aplicador
	Fonte     Fonte
	Fila      Fila
	Breaker   *infra.CircuitBreaker
	RDB       *redis.Client
	Intervalo time.Duration
}

// Coordinator is the single write path of the ledger. Every mutating command
// goes through Executar: it is applied optimistically to the local projection,
// then written through the circuit breaker to the durable store; if the store
// is unreachable the command is queued and replayed in order by the flush
// loop. Reads are served from the projection, so the terminal keeps working
// through an outage.
type Coordinator struct {
	aplicador Aplicador
	fonte     Fonte
	fila      Fila
	breaker   *infra.CircuitBreaker
	rdb       *redis.Client
	intervalo time.Duration

	projecao *Projecao

	mu       sync.Mutex
	lastSync *time.Time

	flushCh chan struct{}
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Intervalo <= 0 {
		cfg.Intervalo = 30 * time.Second
	}
	return &Coordinator{
		aplicador: cfg.Aplicador,
		fonte:     cfg.Fonte,
		fila:      cfg.Fila,
		breaker:   cfg.Breaker,
		rdb:       cfg.RDB,
		intervalo: cfg.Intervalo,
		projecao:  NovaProjecao(),
		flushCh:   make(chan struct{}, 1),
	}
}

// Projecao exposes the read view.
func (c *Coordinator) Projecao() *Projecao { return c.projecao }

// Online reports connectivity as seen by the breaker guarding the store.
func (c *Coordinator) Online() bool {
	return c.breaker.State() != infra.CBOpen
}

// Pendentes returns how many commands await replay.
func (c *Coordinator) Pendentes(ctx context.Context) (int64, error) {
	return c.fila.Pendentes(ctx)
}

// UltimaSincronizacao returns when the projection last agreed with the store.
func (c *Coordinator) UltimaSincronizacao() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSync == nil {
		return nil
	}
	t := *c.lastSync
	return &t
}

// Iniciar hydrates the projection and starts the background flush/refresh
// loop plus the pub/sub subscriber. A store outage at boot is not fatal: the
// terminal starts in offline mode and recovers on the first successful probe.
func (c *Coordinator) Iniciar(ctx context.Context) {
	if err := c.Atualizar(ctx); err != nil {
		log.Warn().Err(err).Msg("sync: hidratação inicial falhou, iniciando em modo offline")
	}
	go c.loop(ctx)
	if c.rdb != nil {
		go c.escutar(ctx)
	}
}

// Executar runs one mutating command end to end.
//
// Outcomes:
//   - projection rejects (state machine, cash floor): domain error, nothing
//     touches the store;
//   - store applies: projection is re-synced from the store;
//   - store rejects with a domain error: projection is rebuilt and the error
//     surfaces to the caller;
//   - store unreachable: the command is queued and the call SUCCEEDS: the
//     write is durable locally and will be replayed;
//   - the device still has queued commands: the new command goes to the back
//     of that queue, so it cannot overtake writes accepted before it.
func (c *Coordinator) Executar(ctx context.Context, cmd Comando) error {
	if err := c.projecao.Aplicar(cmd); err != nil {
		return err
	}

	if pendente, err := c.fila.Espiar(ctx, cmd.Dispositivo); err == nil && pendente != nil {
		if err := c.fila.Enfileirar(ctx, cmd); err != nil {
			return apierror.Rede("não foi possível registrar o comando para sincronização")
		}
		log.Info().
			Str("comando", string(cmd.Tipo)).
			Str("dispositivo", cmd.Dispositivo).
			Msg("sync: fila do dispositivo não drenada, comando enfileirado atrás dela")
		c.kickFlush()
		return nil
	}

	var aplicarErr error
	execErr := c.breaker.Execute(func() error {
		aplicarErr = c.aplicador.Aplicar(ctx, cmd)
		if aplicarErr != nil && apierror.Dominio(aplicarErr) {
			// domain rejection means the store answered: the link is healthy
			return nil
		}
		return aplicarErr
	})

	if errors.Is(execErr, infra.ErrCircuitOpen) || (execErr != nil && !apierror.Dominio(execErr)) {
		if err := c.fila.Enfileirar(ctx, cmd); err != nil {
			// local queue down too: nothing durable holds this write
			return apierror.Rede("não foi possível registrar o comando para sincronização")
		}
		log.Info().
			Str("comando", string(cmd.Tipo)).
			Str("dispositivo", cmd.Dispositivo).
			Msg("sync: loja offline, comando enfileirado")
		return nil
	}

	if aplicarErr != nil {
		// the store refused; drop the optimistic state it contradicts
		if refreshErr := c.Atualizar(ctx); refreshErr != nil {
			log.Warn().Err(refreshErr).Msg("sync: refresh após conflito falhou")
		}
		return aplicarErr
	}

	c.marcarSincronizado()
	c.notificar(ctx)
	if err := c.Atualizar(ctx); err != nil {
		log.Warn().Err(err).Msg("sync: refresh após escrita falhou")
	}
	return nil
}

// Atualizar reloads the projection from the durable store. While commands are
// still pending the reload is skipped (a flush is kicked instead), otherwise
// the optimistic entries would vanish from local reads before being replayed.
func (c *Coordinator) Atualizar(ctx context.Context) error {
	pendentes, err := c.fila.Pendentes(ctx)
	if err != nil {
		return err
	}
	if pendentes > 0 {
		c.kickFlush()
		return nil
	}

	var sessao *model.SessaoCaixa
	execErr := c.breaker.Execute(func() error {
		var loadErr error
		sessao, loadErr = c.fonte.FindSessaoAberta(ctx)
		return loadErr
	})
	if execErr != nil {
		return execErr
	}

	c.projecao.Substituir(sessao)
	c.marcarSincronizado()
	return nil
}

func (c *Coordinator) kickFlush() {
	select {
	case c.flushCh <- struct{}{}:
	default:
	}
}

func (c *Coordinator) loop(ctx context.Context) {
	ticker := time.NewTicker(c.intervalo)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.flushCh:
		}
		c.flush(ctx)
		if err := c.Atualizar(ctx); err != nil {
			log.Debug().Err(err).Msg("sync: refresh periódico falhou")
		}
	}
}

// flush replays queued commands per device in FIFO order. A transport failure
// aborts the whole pass (the store is still down); a domain rejection parks
// the command in the DLQ so the rest of the queue can drain.
func (c *Coordinator) flush(ctx context.Context) {
	devs, err := c.fila.Dispositivos(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("sync: leitura da fila falhou")
		return
	}

	for _, dispositivo := range devs {
		for {
			cmd, err := c.fila.Espiar(ctx, dispositivo)
			if err != nil {
				log.Warn().Err(err).Str("dispositivo", dispositivo).Msg("sync: espiar falhou")
				return
			}
			if cmd == nil {
				break
			}

			var aplicarErr error
			execErr := c.breaker.Execute(func() error {
				aplicarErr = c.aplicador.Aplicar(ctx, *cmd)
				if aplicarErr != nil && apierror.Dominio(aplicarErr) {
					return nil
				}
				return aplicarErr
			})
			if errors.Is(execErr, infra.ErrCircuitOpen) || (execErr != nil && !apierror.Dominio(execErr)) {
				return
			}

			if aplicarErr != nil {
				log.Warn().
					Err(aplicarErr).
					Str("comando", string(cmd.Tipo)).
					Str("dispositivo", dispositivo).
					Msg("sync: comando rejeitado na repetição, enviado para DLQ")
				if err := c.fila.Descartar(ctx, *cmd, aplicarErr.Error()); err != nil {
					log.Error().Err(err).Msg("sync: descartar falhou")
					return
				}
			} else {
				c.notificar(ctx)
			}

			if err := c.fila.Concluir(ctx, dispositivo); err != nil {
				log.Error().Err(err).Str("dispositivo", dispositivo).Msg("sync: concluir falhou")
				return
			}
			c.marcarSincronizado()
		}
	}
}

// escutar funnels cross-device change notifications into Atualizar.
func (c *Coordinator) escutar(ctx context.Context) {
	pubsub := c.rdb.Subscribe(ctx, CanalEventos)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := c.Atualizar(ctx); err != nil {
				log.Debug().Err(err).Msg("sync: refresh por notificação falhou")
			}
		}
	}
}

func (c *Coordinator) notificar(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Publish(ctx, CanalEventos, "atualizado").Err(); err != nil {
		log.Debug().Err(err).Msg("sync: publicação de evento falhou")
	}
}

func (c *Coordinator) marcarSincronizado() {
	now := time.Now()
	c.mu.Lock()
	c.lastSync = &now
	c.mu.Unlock()
}
