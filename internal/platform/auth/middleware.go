package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"RACE-backend/internal/platform/apierr"
)

const (
	CtxUserIDKey   = "user_id"
	CtxRoleKey     = "role"
	CtxIdentityKey = "identity"
)

func abort(c *gin.Context, err *apierr.APIError) {
	c.AbortWithStatusJSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
}

// RequireAuth: Authorization: Bearer <token> を検証して context に Identity を詰める
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			abort(c, apierr.ErrUnauthenticated("missing Authorization header"))
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, apierr.ErrUnauthenticated("invalid Authorization header"))
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			abort(c, apierr.ErrUnauthenticated("empty token"))
			return
		}

		// alg 固定（none攻撃とか回避）
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || token == nil || !token.Valid {
			abort(c, apierr.ErrUnauthenticated("invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abort(c, apierr.ErrUnauthenticated("invalid claims"))
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			abort(c, apierr.ErrUnauthenticated("invalid sub"))
			return
		}

		id := Identity{
			Email:      sub,
			Role:       claimString(claims, "role"),
			Name:       claimString(claims, "name"),
			Department: claimString(claims, "dept"),
			Year:       claimString(claims, "year"),
		}

		c.Set(CtxUserIDKey, sub)
		c.Set(CtxRoleKey, id.Role)
		c.Set(CtxIdentityKey, id)
		c.Next()
	}
}

func claimString(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}

// RequireRole: 例) admin のみ許可したい時に追加
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		if role == "" {
			abort(c, apierr.ErrForbidden("missing role"))
			return
		}
		if _, allowed := roleSet[role]; !allowed {
			abort(c, apierr.ErrForbidden("forbidden"))
			return
		}
		c.Next()
	}
}

// CurrentIdentity は RequireAuth 済みのリクエストから Identity を取り出す
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// MustIdentity: 取り出せなければ 401 を返して false
func MustIdentity(c *gin.Context) (Identity, bool) {
	id, ok := CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, apierr.Body(apierr.CodeUnauthenticated, "not logged in"))
		return Identity{}, false
	}
	return id, true
}
