package offline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"belezapos/internal/worker"

	"github.com/redis/go-redis/v9"
)

// Fila is the per-device FIFO of commands waiting for the durable store.
// Order matters only within a device: the ledger totals are order-independent,
// but a device's own commands may depend on each other (a movement references
// the session its device opened).
type Fila interface {
	Enfileirar(ctx context.Context, c Comando) error
	// Espiar returns the oldest pending command for the device without
	// removing it, or nil when the queue is empty.
	Espiar(ctx context.Context, dispositivo string) (*Comando, error)
	// Concluir removes the head after a successful (or discarded) apply.
	Concluir(ctx context.Context, dispositivo string) error
	// Descartar parks a conflicting command out of the replay path.
	Descartar(ctx context.Context, c Comando, motivo string) error
	Pendentes(ctx context.Context) (int64, error)
	Dispositivos(ctx context.Context) ([]string, error)
}

const (
	filaPrefix      = "sync:pendentes:"
	dispositivosKey = "sync:dispositivos"
)

// RedisFila stores pending commands in one Redis list per device plus a set
// of device ids with pending work. Redis runs next to the terminal, so the
// queue survives store outages and process restarts.
type RedisFila struct {
	rdb *redis.Client
}

func NewRedisFila(rdb *redis.Client) *RedisFila {
	return &RedisFila{rdb: rdb}
}

func (f *RedisFila) chave(dispositivo string) string {
	return filaPrefix + dispositivo
}

func (f *RedisFila) Enfileirar(ctx context.Context, c Comando) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	pipe := f.rdb.TxPipeline()
	pipe.LPush(ctx, f.chave(c.Dispositivo), data)
	pipe.SAdd(ctx, dispositivosKey, c.Dispositivo)
	_, err = pipe.Exec(ctx)
	return err
}

func (f *RedisFila) Espiar(ctx context.Context, dispositivo string) (*Comando, error) {
	// LPush prepends, so the tail holds the oldest command
	raw, err := f.rdb.LIndex(ctx, f.chave(dispositivo), -1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c Comando
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (f *RedisFila) Concluir(ctx context.Context, dispositivo string) error {
	if err := f.rdb.RPop(ctx, f.chave(dispositivo)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	restante, err := f.rdb.LLen(ctx, f.chave(dispositivo)).Result()
	if err == nil && restante == 0 {
		_ = f.rdb.SRem(ctx, dispositivosKey, dispositivo).Err()
	}
	return nil
}

func (f *RedisFila) Descartar(ctx context.Context, c Comando, motivo string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return worker.SendToDLQ(ctx, f.rdb, f.chave(c.Dispositivo), string(c.Tipo), data, motivo, 1)
}

func (f *RedisFila) Pendentes(ctx context.Context) (int64, error) {
	devs, err := f.rdb.SMembers(ctx, dispositivosKey).Result()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, d := range devs {
		n, err := f.rdb.LLen(ctx, f.chave(d)).Result()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (f *RedisFila) Dispositivos(ctx context.Context) ([]string, error) {
	return f.rdb.SMembers(ctx, dispositivosKey).Result()
}

// MemFila is an in-memory Fila for tests.
type MemFila struct {
	mu          sync.Mutex
	filas       map[string][]Comando
	Descartados []Comando
}

func NewMemFila() *MemFila {
	return &MemFila{filas: make(map[string][]Comando)}
}

func (f *MemFila) Enfileirar(_ context.Context, c Comando) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filas[c.Dispositivo] = append(f.filas[c.Dispositivo], c)
	return nil
}

func (f *MemFila) Espiar(_ context.Context, dispositivo string) (*Comando, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fila := f.filas[dispositivo]
	if len(fila) == 0 {
		return nil, nil
	}
	c := fila[0]
	return &c, nil
}

func (f *MemFila) Concluir(_ context.Context, dispositivo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fila := f.filas[dispositivo]
	if len(fila) > 0 {
		f.filas[dispositivo] = fila[1:]
	}
	return nil
}

func (f *MemFila) Descartar(_ context.Context, c Comando, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Descartados = append(f.Descartados, c)
	return nil
}

func (f *MemFila) Pendentes(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, fila := range f.filas {
		total += int64(len(fila))
	}
	return total, nil
}

func (f *MemFila) Dispositivos(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	devs := make([]string, 0, len(f.filas))
	for d, fila := range f.filas {
		if len(fila) > 0 {
			devs = append(devs, d)
		}
	}
	return devs, nil
}
