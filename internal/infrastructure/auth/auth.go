package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"naf-chat-server/internal/config"
)

// Context keys set by the middleware for downstream handlers.
const (
	ContextUserID   = "user_id"
	ContextUserName = "user_name"
	ContextRole     = "role"
)

// Roles carried in the platform JWT.
const (
	RoleUser        = "user"
	RoleCoordinator = "coordinator"
)

// Claims is the subset of the platform token this service cares about.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Validator validates platform-issued HMAC JWTs.
type Validator struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewValidator builds a validator; a nil-op pass-through when auth is disabled.
func NewValidator(cfg *config.Config, log zerolog.Logger) *Validator {
	return &Validator{cfg: cfg, log: log}
}

// Middleware enforces bearer-token auth when enabled. When disabled the
// caller identity is taken from the X-User-* headers so local development
// and tests can impersonate any principal.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.cfg.AuthEnabled {
		return func(c *gin.Context) {
			if userID := strings.TrimSpace(c.GetHeader("X-User-ID")); userID != "" {
				c.Set(ContextUserID, userID)
			}
			if userName := strings.TrimSpace(c.GetHeader("X-User-Name")); userName != "" {
				c.Set(ContextUserName, userName)
			}
			if role := strings.TrimSpace(c.GetHeader("X-User-Role")); role != "" {
				c.Set(ContextRole, role)
			}
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := v.validate(tokenString)
		if err != nil {
			v.log.Debug().Err(err).Msg("jwt validation failed")
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextUserName, claims.Name)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

func (v *Validator) validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(v.cfg.AuthSecret), nil
	},
		jwt.WithIssuer(v.cfg.AuthIssuer),
		jwt.WithAudience(v.cfg.AuthAudience),
		jwt.WithLeeway(time.Minute),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	if claims.Role != RoleUser && claims.Role != RoleCoordinator {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}

// Identity reads the authenticated principal from the request context.
func Identity(c *gin.Context) (id, name, role string) {
	id = c.GetString(ContextUserID)
	name = c.GetString(ContextUserName)
	role = c.GetString(ContextRole)
	return id, name, role
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
