package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

const (
	// SubjectKey ключ для хранения субъекта токена (имя администратора) в контексте
	SubjectKey contextKey = "subject"
	// RoleKey ключ для хранения роли из токена в контексте
	RoleKey contextKey = "role"
)

// GetSubject извлекает субъекта токена из контекста запроса
func GetSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}

// GetRole извлекает роль из контекста запроса
func GetRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// WithClaims возвращает контекст с данными токена
func WithClaims(ctx context.Context, claims *AdminClaims) context.Context {
	ctx = context.WithValue(ctx, SubjectKey, claims.Subject)
	return context.WithValue(ctx, RoleKey, claims.Role)
}
