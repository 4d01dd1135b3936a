package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/branchd-dev/authsession/internal/auth"
	"github.com/branchd-dev/authsession/internal/models"
)

const (
	bearerPrefix = "Bearer "

	// RequestIDHeader is echoed back, or generated when the client sent none
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	// AccessCookie and RefreshCookie carry the two JWTs
	AccessCookie  = "auth"
	RefreshCookie = "refresh"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidAuthFormat  = errors.New("invalid authorization header format")
	ErrEmptyToken         = errors.New("empty token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the session stored by JWTAuthMiddleware
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingCredentials
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// extractAccessToken prefers the access cookie and falls back to the
// Authorization header
func extractAccessToken(c *gin.Context) (token, method string, err error) {
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie != "" {
		return cookie, "cookie", nil
	}
	token, err = extractBearerToken(c.GetHeader("Authorization"))
	return token, "bearer", err
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(statusCode, gin.H{"detail": message})
	c.Abort()
}

// JWTAuthMiddleware validates the access token and loads the session
func JWTAuthMiddleware(db *gorm.DB, issuer *auth.Issuer, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, method, err := extractAccessToken(c)
		if err != nil {
			var message string
			switch err {
			case ErrMissingCredentials:
				message = "Authentication credentials were not provided."
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		claims, err := issuer.ValidateToken(token, auth.AccessToken)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to validate access token")
			respondWithError(c, log, http.StatusUnauthorized, ErrInvalidToken, "Given token not valid for any token type")
			return
		}

		// Verify user exists in database
		var user models.User
		if err := models.FindByID(db, claims.UserID, &user); err != nil {
			respondWithError(c, log, http.StatusUnauthorized, ErrUserNotFound, "User not found")
			return
		}

		setSession(c, &auth.SessionData{
			UserID:     user.ID,
			Username:   user.Username,
			TokenID:    claims.ID,
			AuthMethod: method,
		})

		c.Next()
	}
}
