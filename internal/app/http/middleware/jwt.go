package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tontine-app/config"
	"tontine-app/internal/domain/access"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const sessionKey = "session"

var (
	errNoToken        = errors.New("Authorization header missing")
	errMalformedToken = errors.New("Bearer token malformed")
	errInvalidToken   = errors.New("Invalid or expired token")
)

// SessionFromContext returns the session set by OptionalAuth or AuthMiddleware.
// Without one the caller gets an anonymous, resolved session.
func SessionFromContext(c *gin.Context) access.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(access.Session); ok {
			return s
		}
	}
	return access.Session{}
}

func sessionFromRequest(c *gin.Context) (access.Session, error) {
	jwtKey := []byte(config.JWT_SECRET)
	if len(jwtKey) == 0 {
		return access.Session{}, fmt.Errorf("JWT secret not configured")
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return access.Session{}, errNoToken
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return access.Session{}, errMalformedToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtKey, nil
	})
	if err != nil || !token.Valid {
		return access.Session{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return access.Session{}, errInvalidToken
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return access.Session{}, errInvalidToken
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)

	c.Set("user_id", uint(userID))
	c.Set("email", email)
	c.Set("role", role)

	// the role is kept verbatim: an unknown value must reach the gate and fail there
	return access.Session{
		IdentityID:    strconv.FormatUint(uint64(userID), 10),
		Role:          access.Role(role),
		Authenticated: true,
	}, nil
}

// OptionalAuth resolves the session when a token is present and never aborts on a missing one.
func OptionalAuth(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := sessionFromRequest(c)
		if err != nil {
			c.Set(sessionKey, access.Session{})
			c.Next()
			return
		}
		if _, err := access.Authorize(s, nil); err != nil {
			abortConfiguration(c, log, err)
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

// AuthMiddleware requires a valid token carrying a known role.
func AuthMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := sessionFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    err.Error(),
				"redirect": access.LoginRoute,
			})
			return
		}
		d, err := access.Authorize(s, nil)
		if err != nil {
			abortConfiguration(c, log, err)
			return
		}
		if !d.Allowed() {
			deny(c, d)
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

// RequireRoles lets through only the given roles. Others are sent to their home route.
func RequireRoles(log *zap.Logger, roles ...access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := access.Authorize(SessionFromContext(c), roles)
		if err != nil {
			abortConfiguration(c, log, err)
			return
		}
		if !d.Allowed() {
			deny(c, d)
			return
		}
		c.Next()
	}
}

func deny(c *gin.Context, d access.Decision) {
	switch {
	case d.Outcome == access.OutcomeRedirect && d.Target == access.LoginRoute:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "redirect": d.Target})
	case d.Outcome == access.OutcomeRedirect:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied", "redirect": d.Target})
	default:
		// a resolved server-side session is never pending
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session not resolved"})
	}
}

func abortConfiguration(c *gin.Context, log *zap.Logger, err error) {
	log.Error("access configuration error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Access configuration error"})
}
