//go:build integration

// End-to-end test of the full stack against real Postgres and Redis
// containers. Run with:
//
//	go test -tags integration ./tests/e2e/...
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"belezapos/internal/config"
	"belezapos/internal/infra"
	"belezapos/internal/model"
	"belezapos/internal/offline"
	"belezapos/internal/repository"
	"belezapos/internal/router"
	"belezapos/internal/service"
	"belezapos/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

type ambiente struct {
	srv   *httptest.Server
	token string
}

func subirAmbiente(t *testing.T) *ambiente {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("belezapos"),
		tcpostgres.WithUsername("belezapos"),
		tcpostgres.WithPassword("belezapos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	redisC, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	redisURL, err := redisC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		DatabaseURL:        dsn,
		RedisURL:           redisURL,
		JWTSecret:          "segredo-de-teste",
		JWTExpirationHours: 1,
		JWTRefreshHours:    2,
		SyncRefreshSeconds: 1,
		PDFStoragePath:     t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("senha1234"), bcrypt.DefaultCost)
	require.NoError(t, err)
	usuarioRepo := repository.NewUsuarioRepository(db)
	require.NoError(t, usuarioRepo.Create(ctx, &model.Usuario{
		ID:        uuid.New(),
		Username:  "gerente",
		Nome:      "Gerente",
		SenhaHash: string(hash),
		Papel:     "administrador",
		Ativo:     true,
	}))

	caixaRepo := repository.NewCaixaRepository(db)
	coord := offline.NewCoordinator(offline.Config{
		Aplicador: service.NewAplicador(caixaRepo),
		Fonte:     caixaRepo,
		Fila:      offline.NewRedisFila(rdb),
		Breaker:   infra.NewCircuitBreaker(infra.DefaultCBConfig()),
		RDB:       rdb,
		Intervalo: time.Duration(cfg.SyncRefreshSeconds) * time.Second,
	})
	appCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	coord.Iniciar(appCtx)

	dispatcher := worker.NewDispatcher(rdb)
	caixaSvc := service.NewCaixaService(coord, caixaRepo, dispatcher, cfg)
	authSvc := service.NewAuthService(usuarioRepo, cfg)

	srv := httptest.NewServer(router.New(cfg, db, rdb, coord, caixaSvc, authSvc))
	t.Cleanup(srv.Close)

	env := &ambiente{srv: srv}
	env.token = env.login(t)
	return env
}

func (e *ambiente) login(t *testing.T) string {
	t.Helper()
	status, body := e.post(t, "/v1/auth/login", "", map[string]interface{}{
		"username":           "gerente",
		"password":           "senha1234",
		"dispositivo_id":     "terminal-e2e",
		"dispositivo_classe": "terminal",
	})
	require.Equal(t, http.StatusOK, status, "login falhou: %s", body)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func (e *ambiente) post(t *testing.T, path, token string, payload interface{}) (int, []byte) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

func (e *ambiente) get(t *testing.T, path, token string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

func (e *ambiente) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func TestCicloDoCaixa(t *testing.T) {
	env := subirAmbiente(t)

	// drawer starts closed
	status, _ := env.get(t, "/v1/caixa/atual", env.token)
	assert.Equal(t, http.StatusNotFound, status)

	status, body := env.post(t, "/v1/caixa/abrir", env.token, map[string]interface{}{
		"saldo_inicial": "100.00",
	})
	require.Equal(t, http.StatusCreated, status, "abrir: %s", body)

	// a second abrir must hit the single-open invariant
	status, _ = env.post(t, "/v1/caixa/abrir", env.token, map[string]interface{}{
		"saldo_inicial": "50.00",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.post(t, "/v1/caixa/pagamento", env.token, map[string]interface{}{
		"id":              uuid.NewString(),
		"comanda_id":      "C-001",
		"valor":           "80.00",
		"forma_pagamento": "dinheiro",
	})
	require.Equal(t, http.StatusCreated, status, "pagamento: %s", body)

	status, body = env.post(t, "/v1/caixa/sangria", env.token, map[string]interface{}{
		"id":     uuid.NewString(),
		"valor":  "500.00",
		"motivo": "depósito bancário",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status, "sangria acima do saldo: %s", body)

	status, body = env.post(t, "/v1/caixa/sangria", env.token, map[string]interface{}{
		"id":     uuid.NewString(),
		"valor":  "30.00",
		"motivo": "depósito bancário",
	})
	require.Equal(t, http.StatusCreated, status, "sangria: %s", body)

	status, body = env.get(t, "/v1/caixa/totais", env.token)
	require.Equal(t, http.StatusOK, status)
	var totais struct {
		SaldoDinheiro string `json:"saldo_dinheiro"`
	}
	require.NoError(t, json.Unmarshal(body, &totais))
	assert.Equal(t, "150", totais.SaldoDinheiro) // 100 + 80 - 30

	status, body = env.post(t, "/v1/caixa/fechar", env.token, map[string]interface{}{
		"saldo_contado": "148.00",
	})
	require.Equal(t, http.StatusOK, status, "fechar: %s", body)
	var fechar struct {
		Fechamento struct {
			Resultado string `json:"resultado"`
			Diferenca string `json:"diferenca"`
		} `json:"fechamento"`
	}
	require.NoError(t, json.Unmarshal(body, &fechar))
	assert.Equal(t, "falta", fechar.Fechamento.Resultado)
	assert.Equal(t, "-2", fechar.Fechamento.Diferenca)

	// drawer is closed again
	status, _ = env.get(t, "/v1/caixa/atual", env.token)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.get(t, "/v1/sync/status", env.token)
	require.Equal(t, http.StatusOK, status)
	var syncStatus struct {
		Online    bool  `json:"online"`
		Pendentes int64 `json:"pendentes"`
	}
	require.NoError(t, json.Unmarshal(body, &syncStatus))
	assert.True(t, syncStatus.Online)
	assert.Zero(t, syncStatus.Pendentes)
}

func TestAutenticacaoObrigatoria(t *testing.T) {
	env := subirAmbiente(t)

	status, _ := env.get(t, "/v1/caixa/atual", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := env.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"database":"ok"`)
}
