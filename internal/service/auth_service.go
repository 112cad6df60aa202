package service

import (
	"context"
	"errors"
	"time"

	"belezapos/internal/apierror"
	"belezapos/internal/config"
	"belezapos/internal/dto"
	"belezapos/internal/model"
	"belezapos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

// AuthService issues device-bound JWTs. The device id and class are baked
// into the claims at login, so every later request carries the capability
// context the till gate needs.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error)
	CriarUsuario(ctx context.Context, req dto.CriarUsuarioRequest) (*dto.UsuarioResponse, error)
}

type authService struct {
	usuarios repository.UsuarioRepository
	cfg      *config.Config
}

func NewAuthService(usuarios repository.UsuarioRepository, cfg *config.Config) AuthService {
	return &authService{usuarios: usuarios, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	u, err := s.usuarios.FindByUsername(ctx, req.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.Permissao("credenciais inválidas")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.SenhaHash), []byte(req.Password)) != nil {
		return nil, apierror.Permissao("credenciais inválidas")
	}
	return s.emitirTokens(u, req.DispositivoID, req.DispositivoClasse)
}

func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error) {
	claims, err := s.validarToken(req.RefreshToken)
	if err != nil {
		return nil, apierror.Permissao("refresh token inválido ou expirado")
	}
	if claims["token_type"] != "refresh" {
		return nil, apierror.Permissao("token não é um refresh token")
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apierror.Permissao("refresh token inválido ou expirado")
	}
	u, err := s.usuarios.FindByID(ctx, userID)
	if err != nil || !u.Ativo {
		return nil, apierror.Permissao("usuário inativo ou inexistente")
	}

	dispositivoID, _ := claims["dispositivo_id"].(string)
	dispositivoClasse, _ := claims["dispositivo_classe"].(string)
	return s.emitirTokens(u, dispositivoID, dispositivoClasse)
}

func (s *authService) CriarUsuario(ctx context.Context, req dto.CriarUsuarioRequest) (*dto.UsuarioResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	u := model.Usuario{
		ID:        uuid.New(),
		Username:  req.Username,
		Nome:      req.Nome,
		Email:     req.Email,
		SenhaHash: string(hash),
		Papel:     req.Papel,
		Ativo:     true,
	}
	if err := s.usuarios.Create(ctx, &u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Validacao("username já cadastrado")
		}
		return nil, err
	}
	resp := usuarioResponse(&u)
	return &resp, nil
}

func (s *authService) emitirTokens(u *model.Usuario, dispositivoID, dispositivoClasse string) (*dto.LoginResponse, error) {
	expiresIn := s.cfg.JWTExpirationHours * 3600

	access, err := s.assinarToken(u, dispositivoID, dispositivoClasse, "access",
		time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refresh, err := s.assinarToken(u, dispositivoID, dispositivoClasse, "refresh",
		time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    expiresIn,
		User:         usuarioResponse(u),
	}, nil
}

func (s *authService) assinarToken(u *model.Usuario, dispositivoID, dispositivoClasse, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":            u.ID.String(),
		"username":           u.Username,
		"papel":              u.Papel,
		"dispositivo_id":     dispositivoID,
		"dispositivo_classe": dispositivoClasse,
		"token_type":         tokenType,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *authService) validarToken(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("método de assinatura inesperado")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("token inválido")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims inválidas")
	}
	return claims, nil
}

func usuarioResponse(u *model.Usuario) dto.UsuarioResponse {
	return dto.UsuarioResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Nome:     u.Nome,
		Email:    u.Email,
		Papel:    u.Papel,
		Ativo:    u.Ativo,
	}
}
