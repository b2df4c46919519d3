package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRole は管理APIに必要なroleクレームの値です。
const AdminRole = "admin"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrNotAdmin     = errors.New("token lacks admin role")
)

// AdminClaims は管理APIのトークンのクレームです。
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAdmin はHS256で署名されadminロールを持つBearerトークンを要求するミドルウェアです。
func RequireAdmin(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := verifyAdmin(r, secret); err != nil {
			slog.WarnContext(r.Context(), "admin request rejected", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func verifyAdmin(r *http.Request, secret []byte) error {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return ErrMissingToken
	}
	var claims AdminClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	if claims.Role != AdminRole {
		return ErrNotAdmin
	}
	return nil
}

// SignAdminToken はadminロールのトークンを発行します。運用ツールとテストで使います。
func SignAdminToken(secret []byte, subject string) (string, error) {
	claims := AdminClaims{
		Role:             AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
