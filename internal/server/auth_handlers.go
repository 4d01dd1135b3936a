package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/branchd-dev/authsession/internal/auth"
	"github.com/branchd-dev/authsession/internal/models"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"omitempty,email"`
	Password1 string `json:"password1" binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required,eqfield=Password1"`
}

// UpdateUserRequest represents a profile update
type UpdateUserRequest struct {
	FirstName    *string `json:"first_name" binding:"omitempty,max=150"`
	LastName     *string `json:"last_name" binding:"omitempty,max=150"`
	ProfileImage *string `json:"profile_image" binding:"omitempty,url"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	PK           string `json:"pk"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	ProfileImage string `json:"profile_image"`
}

// LoginResponse represents a login response; the tokens travel as cookies
type LoginResponse struct {
	User *UserDetail `json:"user"`
}

func newUserDetail(user *models.User) *UserDetail {
	return &UserDetail{
		PK:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		ProfileImage: user.ProfileImage,
	}
}

// issueTokens creates an access/refresh pair, records the refresh jti and
// sets both cookies
func (s *Server) issueTokens(c *gin.Context, tx *gorm.DB, user *models.User) error {
	access, _, err := s.issuer.GenerateToken(user.ID, user.Username, auth.AccessToken)
	if err != nil {
		return err
	}
	refresh, claims, err := s.issuer.GenerateToken(user.ID, user.Username, auth.RefreshToken)
	if err != nil {
		return err
	}

	record := &models.RefreshToken{
		BaseModel: models.BaseModel{ID: claims.ID},
		UserID:    user.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := tx.Create(record).Error; err != nil {
		return err
	}

	s.setCookie(c, AccessCookie, access, s.issuer.TTL(auth.AccessToken))
	s.setCookie(c, RefreshCookie, refresh, s.issuer.TTL(auth.RefreshToken))
	return nil
}

func (s *Server) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", c.Request.TLS != nil, true)
}

func (s *Server) clearCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}

// login authenticates with username and password and sets the token cookies
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Unable to log in with provided credentials."}})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Unable to log in with provided credentials."}})
		return
	}

	if err := s.issueTokens(c, s.db, &user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue tokens")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User logged in")
	c.JSON(http.StatusOK, LoginResponse{User: newUserDetail(&user)})
}

// register creates an account and signs it in
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password1)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errUsernameTaken
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return s.issueTokens(c, tx, user)
	})
	if errors.Is(err, errUsernameTaken) {
		c.JSON(http.StatusBadRequest, gin.H{"username": []string{"A user with that username already exists."}})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	c.JSON(http.StatusCreated, LoginResponse{User: newUserDetail(user)})
}

var errUsernameTaken = errors.New("username taken")

// refresh exchanges a valid refresh cookie for a new token pair. The old
// refresh token is revoked, so each one can be used once.
func (s *Server) refresh(c *gin.Context) {
	token, err := c.Cookie(RefreshCookie)
	if err != nil || token == "" {
		respondWithError(c, s.logger, http.StatusUnauthorized, ErrMissingCredentials, "No valid refresh token found.")
		return
	}

	claims, err := s.issuer.ValidateToken(token, auth.RefreshToken)
	if err != nil {
		s.clearCookies(c)
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Token is invalid or expired")
		return
	}

	var user models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var record models.RefreshToken
		if err := models.FindByID(tx, claims.ID, &record); err != nil {
			return ErrInvalidToken
		}
		if !record.Active(s.issuer.Now()) {
			return ErrInvalidToken
		}

		now := s.issuer.Now()
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", record.ID).
			Update("revoked_at", &now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidToken
		}

		if err := models.FindByID(tx, claims.UserID, &user); err != nil {
			return ErrUserNotFound
		}
		return s.issueTokens(c, tx, &user)
	})
	if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUserNotFound) {
		s.clearCookies(c)
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Token is invalid or expired")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to rotate refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Debug().Str("user_id", user.ID).Msg("Tokens refreshed")
	c.JSON(http.StatusOK, gin.H{"access_expiration": s.issuer.Now().Add(s.issuer.TTL(auth.AccessToken)).UTC()})
}

// logout revokes the refresh token, if any, and clears the cookies
func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(RefreshCookie); err == nil && token != "" {
		if claims, err := s.issuer.ValidateToken(token, auth.RefreshToken); err == nil {
			now := s.issuer.Now()
			if err := s.db.Model(&models.RefreshToken{}).
				Where("id = ? AND revoked_at IS NULL", claims.ID).
				Update("revoked_at", &now).Error; err != nil {
				s.logger.Error().Err(err).Msg("Failed to revoke refresh token")
			}
		}
	}

	s.clearCookies(c)
	c.JSON(http.StatusOK, gin.H{"detail": "Successfully logged out."})
}

// getCurrentUser returns the user behind the access token
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
		return
	}

	var user models.User
	if err := models.FindByID(s.db, sessionData.UserID, &user); err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, newUserDetail(&user))
}

// updateCurrentUser patches profile fields of the current user
func (s *Server) updateCurrentUser(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.ProfileImage != nil {
		updates["profile_image"] = *req.ProfileImage
	}

	var user models.User
	if err := models.FindByID(s.db, sessionData.UserID, &user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to update user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if err := models.FindByID(s.db, user.ID, &user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	c.JSON(http.StatusOK, newUserDetail(&user))
}
