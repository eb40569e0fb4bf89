package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Ключи контекста Gin
const (
	ContextUserID  = "user_id"
	ContextIsAdmin = "is_admin"
)

// RoleAdmin - роль, которой доступны служебные эндпоинты
const RoleAdmin = "admin"

// UserClaims - claims токена, выпущенного внешним сервисом аутентификации
type UserClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет токены доступа. Выпуск токенов здесь не реализован.
type AuthMiddleware struct {
	enabled bool
	secret  []byte
}

// NewAuthMiddleware создает middleware. При enabled=false все запросы пропускаются.
func NewAuthMiddleware(enabled bool, secret string) *AuthMiddleware {
	return &AuthMiddleware{enabled: enabled, secret: []byte(secret)}
}

// Enabled сообщает, включена ли проверка токенов
func (m *AuthMiddleware) Enabled() bool {
	return m.enabled
}

// ParseToken проверяет подпись HS256 и срок действия токена
func (m *AuthMiddleware) ParseToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// RequireAuth проверяет заголовок Authorization: Bearer {token}
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			return
		}

		claims, err := m.ParseToken(parts[1])
		if err != nil {
			var ve *jwt.ValidationError
			if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired", "error_type": "token_expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextIsAdmin, claims.Role == RoleAdmin)
		c.Next()
	}
}

// AdminOnly пропускает только администраторов. Должен применяться ПОСЛЕ RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Next()
			return
		}
		if _, exists := c.Get(ContextUserID); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !c.GetBool(ContextIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required"})
			return
		}
		c.Next()
	}
}

// AuthorizedFor проверяет, что аутентифицированный пользователь действует от своего имени.
// Без аутентификации (проверка выключена) всегда true.
func AuthorizedFor(c *gin.Context, userID string) bool {
	tokenUser := c.GetString(ContextUserID)
	if tokenUser == "" {
		return true
	}
	return tokenUser == userID || c.GetBool(ContextIsAdmin)
}
