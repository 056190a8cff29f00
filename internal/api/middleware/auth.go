package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-QueueService/internal/api/handlers"
)

type contextKey string

const userIDKey contextKey = "user_id"

// HeaderUserID идентификатор клиента, проставляемый API gateway
const HeaderUserID = "X-User-ID"

const msgMissingUserID = "отсутствует или некорректен заголовок X-User-ID"

// Auth требует заголовок X-User-ID с положительным числом и кладёт его в контекст
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
		if err != nil || userID <= 0 {
			handlers.RespondUnauthorized(w, msgMissingUserID)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID кладёт идентификатор пользователя в контекст
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID достаёт идентификатор пользователя из контекста
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}
