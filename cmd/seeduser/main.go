// seeduser creates the first administrator account on a fresh install.
//
//	DATABASE_URL=... go run ./cmd/seeduser -username admin -nome "Dona do salão" -senha trocar123
package main

import (
	"context"
	"flag"

	"belezapos/internal/config"
	"belezapos/internal/infra"
	"belezapos/internal/model"
	"belezapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	username := flag.String("username", "admin", "login do usuário")
	nome := flag.String("nome", "Administrador", "nome de exibição")
	senha := flag.String("senha", "", "senha inicial (obrigatória)")
	papel := flag.String("papel", "administrador", "papel: atendente | administrador")
	flag.Parse()

	if *senha == "" {
		log.Fatal().Msg("-senha é obrigatória")
	}
	if *papel != "atendente" && *papel != "administrador" {
		log.Fatal().Str("papel", *papel).Msg("papel inválido")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuração inválida")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("conexão com o banco falhou")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*senha), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("hash da senha falhou")
	}

	u := model.Usuario{
		ID:        uuid.New(),
		Username:  *username,
		Nome:      *nome,
		SenhaHash: string(hash),
		Papel:     *papel,
		Ativo:     true,
	}
	if err := repository.NewUsuarioRepository(db).Create(context.Background(), &u); err != nil {
		log.Fatal().Err(err).Msg("criação do usuário falhou")
	}
	log.Info().Str("username", u.Username).Str("papel", u.Papel).Msg("usuário criado")
}
