package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"belezapos/internal/config"
	"belezapos/internal/infra"
	"belezapos/internal/offline"
	"belezapos/internal/repository"
	"belezapos/internal/router"
	"belezapos/internal/service"
	"belezapos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuração inválida")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("conexão com o banco falhou")
	}

	// redis is local to the store, required: it holds the offline queue
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("conexão com o redis falhou")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	caixaRepo := repository.NewCaixaRepository(db)
	usuarioRepo := repository.NewUsuarioRepository(db)

	breaker := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	coord := offline.NewCoordinator(offline.Config{
		Aplicador: service.NewAplicador(caixaRepo),
		Fonte:     caixaRepo,
		Fila:      offline.NewRedisFila(rdb),
		Breaker:   breaker,
		RDB:       rdb,
		Intervalo: time.Duration(cfg.SyncRefreshSeconds) * time.Second,
	})
	coord.Iniciar(ctx)

	dispatcher := worker.NewDispatcher(rdb)
	mailer := infra.NewMailer(cfg)
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, worker.Handlers{
		Email: worker.NewEmailWorker(mailer),
	})

	caixaSvc := service.NewCaixaService(coord, caixaRepo, dispatcher, cfg)
	authSvc := service.NewAuthService(usuarioRepo, cfg)

	engine := router.New(cfg, db, rdb, coord, caixaSvc, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("servidor iniciado")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("servidor HTTP encerrou com erro")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("encerrando...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown forçado")
	}
	log.Info().Msg("servidor encerrado")
}
