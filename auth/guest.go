package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/koulibalyamadou10/braprime-backend/middleware"
)

// POST /auth/guest
// Issues a short-lived guest identity so a visitor can accumulate a
// local cart buffer before signing in. No row is stored; the buffer is
// keyed on the guest id and expires with the token.
func CreateGuestUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		guestID := "guest_" + generateRandomString(16)
		expiresAt := time.Now().Add(24 * time.Hour)

		token, err := issueGuestToken(guestID, expiresAt)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"guest_id":   guestID,
			"token":      token,
			"expires_at": expiresAt,
		})
	}
}

func generateRandomString(n int) string {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "rand_guest"
	}
	return hex.EncodeToString(bytes)
}

func issueGuestToken(id string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": id,
		"role":    middleware.RoleGuest,
		"exp":     expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
