// Package auth verifies session tokens issued by casdoor and exposes the
// caller to gin handlers.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
)

const (
	// Context keys set by RequireAuth
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"

	verifiedTeacherTag = "teacher"
	unverifiedTeacher  = "teacher_pending"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenVerifier turns a bearer token into the calling user.
type TokenVerifier interface {
	Verify(token string) (*models.AuthUser, error)
}

// CasdoorConfig holds the casdoor application settings
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// CasdoorVerifier checks JWTs signed by a casdoor instance.
type CasdoorVerifier struct {
	client *casdoorsdk.Client
}

func NewCasdoorVerifier(cfg CasdoorConfig) *CasdoorVerifier {
	return &CasdoorVerifier{
		client: casdoorsdk.NewClient(
			cfg.Endpoint,
			cfg.ClientID,
			cfg.ClientSecret,
			cfg.Certificate,
			cfg.OrganizationName,
			cfg.ApplicationName,
		),
	}
}

func (v *CasdoorVerifier) Verify(token string) (*models.AuthUser, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return userFromCasdoor(&claims.User), nil
}

// userFromCasdoor maps casdoor's admin flag and user tag onto our roles.
// Teachers carry the "teacher" tag once an administrator has verified them.
func userFromCasdoor(u *casdoorsdk.User) *models.AuthUser {
	user := &models.AuthUser{
		ID:    u.Id,
		Name:  u.DisplayName,
		Email: u.Email,
		Role:  models.RoleStudent,
	}
	if user.ID == "" {
		user.ID = u.Name
	}
	if user.Name == "" {
		user.Name = u.Name
	}

	switch {
	case u.IsAdmin:
		user.Role = models.RoleAdmin
		user.Verified = true
	case strings.EqualFold(u.Tag, verifiedTeacherTag):
		user.Role = models.RoleTeacher
		user.Verified = true
	case strings.EqualFold(u.Tag, unverifiedTeacher):
		user.Role = models.RoleTeacher
	}
	return user
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller in the gin context.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			return
		}

		user, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Next()
	}
}

// RequireAuthor lets through admins and verified teachers.
func RequireAuthor() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			return
		}
		if !user.CanAuthor() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Only verified teachers and administrators can manage questions"})
			return
		}
		c.Next()
	}
}

// RequireRole lets through callers holding one of roles.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Insufficient permissions"})
	}
}

// CurrentUser returns the caller stored by RequireAuth.
func CurrentUser(c *gin.Context) (*models.AuthUser, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.AuthUser)
	return user, ok && user != nil
}
