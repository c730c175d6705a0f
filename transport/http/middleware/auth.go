package middleware

import (
	"context"
	"net/http"
	"strings"

	"hotelier/infras/jwt"
	"hotelier/infras/otel"
	authService "hotelier/internal/domains/auth/service"
	"hotelier/shared/constant"
	"hotelier/shared/failure"
	"hotelier/transport/http/response"
)

// Auth gates resource routes. Callers authenticate with HTTP basic
// credentials on every request; a bearer access token from /v1/login is
// accepted as an alternative.
type Auth interface {
	Authenticate(next http.Handler) http.Handler
	RequireRole(role string) func(http.Handler) http.Handler
}

type authImpl struct {
	service    authService.Auth
	jwtService jwt.JWT
	otel       otel.Otel
}

func NewAuthMiddleware(service authService.Auth, jwtService jwt.JWT, otel otel.Otel) Auth {
	return &authImpl{
		service:    service,
		jwtService: jwtService,
		otel:       otel,
	}
}

func (m *authImpl) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "auth.middleware")
		defer scope.End()

		authHeader := request.Header.Get(constant.RequestHeaderAuthorization)
		if strings.HasPrefix(authHeader, "Bearer ") {
			m.authenticateBearer(writer, request.WithContext(ctx), next, authHeader)

			return
		}

		username, plaintext, ok := request.BasicAuth()
		if !ok {
			writer.Header().Set("WWW-Authenticate", `Basic realm="restricted"`)

			err := failure.Unauthorized("missing credentials")
			scope.TraceError(err)
			response.WithError(writer, err)

			return
		}

		identity, err := m.service.Authenticate(ctx, username, plaintext)
		if err != nil {
			scope.TraceError(err)
			response.WithError(writer, err)

			return
		}

		ctx = context.WithValue(ctx, constant.ContextKeyUserID, identity.UserID)
		ctx = context.WithValue(ctx, constant.ContextKeyUsername, identity.Username)
		ctx = context.WithValue(ctx, constant.ContextKeyUserRole, identity.Role)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

func (m *authImpl) authenticateBearer(writer http.ResponseWriter, request *http.Request, next http.Handler, authHeader string) {
	ctx := request.Context()

	tokenString, err := jwt.ExtractTokenFromHeader(authHeader)
	if err != nil {
		response.WithError(writer, failure.Unauthorized("invalid authorization header format"))

		return
	}

	claims, err := m.jwtService.ValidateToken(tokenString, jwt.AccessToken)
	if err != nil {
		response.WithError(writer, failure.Unauthorized("invalid or expired token"))

		return
	}

	if claims.UserID == constant.Empty || claims.Username == constant.Empty {
		response.WithError(writer, failure.Unauthorized("invalid token claims"))

		return
	}

	ctx = context.WithValue(ctx, constant.ContextKeyUserID, claims.UserID)
	ctx = context.WithValue(ctx, constant.ContextKeyUsername, claims.Username)
	ctx = context.WithValue(ctx, constant.ContextKeyUserRole, claims.Role)

	next.ServeHTTP(writer, request.WithContext(ctx))
}

// RequireRole rejects authenticated callers whose role does not match.
func (m *authImpl) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			userRole, _ := request.Context().Value(constant.ContextKeyUserRole).(string)

			if userRole != role {
				response.WithError(writer, failure.Forbidden("insufficient role"))

				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
