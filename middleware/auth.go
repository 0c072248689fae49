package middleware

import (
	"context"
	"strings"
	"time"

	"edumesh/config"
	"edumesh/database"
	"edumesh/models"
	"edumesh/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Claims carried by both access and refresh tokens. Downstream handlers
// never re-derive identity; they read these from c.Locals.
type Claims struct {
	UserID   uint   `json:"userId"`
	SchoolID uint   `json:"schoolId"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// GenerateTokenPair creates a short-lived access token and a longer-lived
// refresh token for a user.
func GenerateTokenPair(user *models.User) (*TokenPair, error) {
	access, err := signToken(user, config.AppConfig.JWTSecret, config.AppConfig.AccessExpiresIn)
	if err != nil {
		return nil, err
	}
	refresh, err := signToken(user, config.AppConfig.JWTRefreshSecret, config.AppConfig.RefreshExpiresIn)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(config.AppConfig.AccessExpiresIn.Seconds()),
	}, nil
}

func signToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:   user.ID,
		SchoolID: user.SchoolID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a token string against the given secret.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// VerifyRefreshToken validates a refresh token.
func VerifyRefreshToken(tokenString string) (*Claims, error) {
	return ParseToken(tokenString, config.AppConfig.JWTRefreshSecret)
}

// JWTMiddleware validates access tokens and resolves the caller's identity.
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.Error(c, fiber.StatusUnauthorized, "Access token required")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return utils.Error(c, fiber.StatusUnauthorized, "Invalid authorization header format")
		}

		// Reject tokens invalidated by logout
		if rc := database.GetRedisClient(); rc != nil {
			if exists, _ := rc.Exists(context.Background(), "blacklist:jwt:"+tokenString).Result(); exists > 0 {
				return utils.Error(c, fiber.StatusUnauthorized, "Invalid or expired token")
			}
		}

		claims, err := ParseToken(tokenString, config.AppConfig.JWTSecret)
		if err != nil {
			return utils.Error(c, fiber.StatusUnauthorized, "Invalid or expired token")
		}

		// Verify user still exists and is active
		var user models.User
		if err := database.DB.Where("id = ? AND active = ?", claims.UserID, true).First(&user).Error; err != nil {
			return utils.Error(c, fiber.StatusUnauthorized, "User not found or inactive")
		}

		c.Locals("user", &user)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// RequireRole middleware checks if the caller has one of the required roles
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*Claims)
		if !ok {
			return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
		}

		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}

		return utils.Error(c, fiber.StatusForbidden, "Insufficient permissions")
	}
}

// RequireAdmin allows only school admins
func RequireAdmin() fiber.Handler {
	return RequireRole("admin")
}

// RequireStaff allows teachers and admins
func RequireStaff() fiber.Handler {
	return RequireRole("admin", "teacher")
}

// GetCurrentUser returns the current authenticated user
func GetCurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User not found in context")
	}
	return user, nil
}

// GetCurrentClaims returns the current JWT claims
func GetCurrentClaims(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals("claims").(*Claims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Claims not found in context")
	}
	return claims, nil
}
