// Package middleware содержит HTTP middleware для сервиса bizscan.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const grantSourceKey contextKey = "grantSource"

const (
	grantCookieName = "access_grant"
	grantTTL        = 24 * time.Hour
)

// GrantSource указывает, каким путём получено право на анализ.
type GrantSource string

const (
	GrantSourceCoupon  GrantSource = "coupon"
	GrantSourcePayment GrantSource = "payment"
)

// GrantMiddleware выдаёт и проверяет подписанные гранты доступа к анализу.
// Грант выдаётся сервером после успешной активации промокода или
// подтверждённого платежа; клиентская сторона подделать его не может.
type GrantMiddleware struct {
	secretKey []byte
}

// NewGrantMiddleware создаёт новый экземпляр GrantMiddleware с указанным секретным ключом.
func NewGrantMiddleware(secret string) *GrantMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &GrantMiddleware{
		secretKey: key,
	}
}

// Middleware пропускает запрос дальше только при действительном гранте
// и добавляет его источник в контекст запроса.
func (g *GrantMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(grantCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		source, ok := g.parseGrant(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), grantSourceKey, source)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IssueGrant устанавливает cookie с подписанным грантом указанного источника.
func (g *GrantMiddleware) IssueGrant(w http.ResponseWriter, source GrantSource) {
	expires := time.Now().Add(grantTTL)
	value := g.signGrant(source, expires.Unix())

	cookie := &http.Cookie{
		Name:     grantCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (g *GrantMiddleware) signGrant(source GrantSource, expiresUnix int64) string {
	payload := string(source) + "." + strconv.FormatInt(expiresUnix, 10)

	mac := hmac.New(sha256.New, g.secretKey)
	mac.Write([]byte(payload))
	signature := mac.Sum(nil)

	return payload + "." + hex.EncodeToString(signature)
}

func (g *GrantMiddleware) parseGrant(cookieValue string) (GrantSource, bool) {
	parts := strings.Split(cookieValue, ".")
	if len(parts) != 3 {
		return "", false
	}

	payload := parts[0] + "." + parts[1]
	signature := parts[2]

	mac := hmac.New(sha256.New, g.secretKey)
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}

	expiresUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", false
	}
	if time.Now().Unix() > expiresUnix {
		return "", false
	}

	source := GrantSource(parts[0])
	if source != GrantSourceCoupon && source != GrantSourcePayment {
		return "", false
	}

	return source, true
}

// GetGrantSourceFromContext извлекает источник гранта из контекста запроса.
func GetGrantSourceFromContext(ctx context.Context) (GrantSource, bool) {
	source, ok := ctx.Value(grantSourceKey).(GrantSource)
	return source, ok
}
