package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/automarket-system/internal/model"
)

type contextKey string

const principalKey contextKey = "principal"

// AuthMiddleware проверяет bearer-токен, выданный внешним сервисом авторизации,
// и извлекает из него аутентифицированного пользователя.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{
		secretKey: []byte(secret),
	}
}

// Middleware проверяет заголовок Authorization и добавляет пользователя в контекст запроса.
// Токен должен быть подписан HS256 и содержать клеймы sub (идентификатор) и role.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		principal, ok := a.parseToken(raw)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthMiddleware) parseToken(raw string) (model.Principal, bool) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secretKey, nil
	})
	if err != nil || !token.Valid {
		return model.Principal{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Principal{}, false
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return model.Principal{}, false
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return model.Principal{}, false
	}

	role, ok := claims["role"].(string)
	if !ok {
		return model.Principal{}, false
	}

	switch model.Role(role) {
	case model.RoleBuyer, model.RoleSeller, model.RoleAdmin:
	default:
		return model.Principal{}, false
	}

	return model.Principal{
		UserID: userID,
		Role:   model.Role(role),
	}, true
}

// IssueToken формирует подписанный токен для указанного пользователя.
// Используется в тестах и отладке: в эксплуатации токены выдаёт внешний сервис авторизации.
func (a *AuthMiddleware) IssueToken(userID int64, role model.Role) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": string(role),
	})
	return token.SignedString(a.secretKey)
}

// GetPrincipalFromContext извлекает аутентифицированного пользователя из контекста запроса.
func GetPrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok
}
