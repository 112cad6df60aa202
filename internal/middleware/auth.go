package middleware

import (
	"errors"
	"net/http"
	"strings"

	"belezapos/internal/apierror"
	"belezapos/internal/capability"
	"belezapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const claimsKey = "claims"

// Claims is the decoded identity of a request: who, with which role, from
// which device.
type Claims struct {
	UserID            uuid.UUID
	Username          string
	Papel             string
	DispositivoID     string
	DispositivoClasse string
}

// Ator converts the claims into the service-layer actor.
func (c Claims) Ator() service.Ator {
	return service.Ator{
		UsuarioID: c.UserID,
		Papel:     c.Papel,
		Dispositivo: capability.Dispositivo{
			ID:     c.DispositivoID,
			Classe: capability.Classe(c.DispositivoClasse),
		},
	}
}

// JWTAuth validates the Bearer token and stores the decoded claims in the
// request context.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token de autenticação ausente"))
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("método de assinatura inesperado")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token inválido ou expirado"))
			return
		}

		mapClaims, ok := token.Claims.(jwt.MapClaims)
		if !ok || mapClaims["token_type"] != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token inválido ou expirado"))
			return
		}

		rawID, _ := mapClaims["user_id"].(string)
		userID, err := uuid.Parse(rawID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token inválido ou expirado"))
			return
		}

		claims := Claims{UserID: userID}
		claims.Username, _ = mapClaims["username"].(string)
		claims.Papel, _ = mapClaims["papel"].(string)
		claims.DispositivoID, _ = mapClaims["dispositivo_id"].(string)
		claims.DispositivoClasse, _ = mapClaims["dispositivo_classe"].(string)

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequirePapel restricts a route to the given roles.
func RequirePapel(papeis ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Não autenticado"))
			return
		}
		for _, p := range papeis {
			if claims.Papel == p {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permissão insuficiente"))
	}
}

// GetClaims returns the decoded claims stored by JWTAuth.
func GetClaims(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
