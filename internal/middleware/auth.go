// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type claimsKey struct{}

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*AccessTokenClaims, error)
}

// RevocationChecker reports whether an access token id was revoked by logout.
type RevocationChecker interface {
	IsAccessTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

// RoleLookup returns the stored role of a user.
type RoleLookup interface {
	CurrentRole(ctx context.Context, userID string) (string, error)
}

// AccessTokenClaims is the verified caller. Role and Tier are as of token
// issue and may lag the stored record.
type AccessTokenClaims struct {
	UserID    string
	Role      string
	Tier      string
	JTI       string
	ExpiresAt time.Time
}

// Authenticator rejects requests without a valid, unrevoked bearer token.
// A failing revocation store does not lock everyone out: signature and
// expiry were already checked.
func Authenticator(verifier TokenVerifier, revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				core.JSONError(w, core.UnauthorizedError("missing authorization token"))
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				core.JSONError(w, tokenError(err))
				return
			}

			if revocations != nil && claims.JTI != "" {
				revoked, err := revocations.IsAccessTokenBlacklisted(r.Context(), claims.JTI)
				switch {
				case err != nil:
					slog.Warn("revocation check failed", "user_id", claims.UserID, "error", err)
				case revoked:
					core.JSONError(w, core.TokenRevokedError())
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func tokenError(err error) error {
	var appErr *core.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, core.ErrTokenExpired):
		return core.TokenExpiredError()
	case errors.Is(err, core.ErrTokenRevoked):
		return core.TokenRevokedError()
	default:
		return core.TokenInvalidError()
	}
}

// RequireAdmin admits callers whose role is admin. When lookup is set the
// stored role decides in both directions, so a promotion or demotion applies
// before the caller's token expires. A caller whose account is gone is
// treated as holding a revoked token.
func RequireAdmin(lookup RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				core.JSONError(w, core.UnauthorizedError("authentication required"))
				return
			}

			role, err := currentRole(r.Context(), lookup, claims)
			switch {
			case errors.Is(err, core.ErrNotFound):
				core.JSONError(w, core.TokenRevokedError())
				return
			case err != nil:
				core.InternalServerError(w, err)
				return
			}

			if role != forum.RoleAdmin {
				core.JSONError(w, core.ForbiddenError("admin role required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IsCurrentAdmin reports whether the caller in ctx is an admin according to
// the stored role, falling back to the role claim when lookup is nil. A
// caller whose account no longer exists is not an admin.
func IsCurrentAdmin(ctx context.Context, lookup RoleLookup) (bool, error) {
	claims := GetClaims(ctx)
	if claims == nil {
		return false, nil
	}

	role, err := currentRole(ctx, lookup, claims)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("look up caller role: %w", err)
	}
	return role == forum.RoleAdmin, nil
}

func currentRole(ctx context.Context, lookup RoleLookup, claims *AccessTokenClaims) (string, error) {
	if lookup == nil {
		return claims.Role, nil
	}
	return lookup.CurrentRole(ctx, claims.UserID)
}

// ExtractToken returns the bearer credential, or "" for any other scheme.
func ExtractToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	claims, _ := ctx.Value(claimsKey{}).(*AccessTokenClaims)
	return claims
}

func GetUserID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.UserID
	}
	return ""
}

func GetUserRole(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.Role
	}
	return ""
}

func GetUserTier(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.Tier
	}
	return ""
}

func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}

// IsAdmin reads the role claim only. Authorization decisions go through
// IsCurrentAdmin or RequireAdmin.
func IsAdmin(ctx context.Context) bool {
	return GetUserRole(ctx) == forum.RoleAdmin
}

// WithPrincipal returns ctx carrying an authenticated caller.
func WithPrincipal(ctx context.Context, userID, role, tier string) context.Context {
	return context.WithValue(ctx, claimsKey{}, &AccessTokenClaims{UserID: userID, Role: role, Tier: tier})
}
