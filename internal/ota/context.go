package ota

import "context"

type contextKey string

const echoTokenKey contextKey = "echoToken"

func NewContextWithEchoToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, echoTokenKey, token)
}

func EchoTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(echoTokenKey).(string)

	return token, ok
}
