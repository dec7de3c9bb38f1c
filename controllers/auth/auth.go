package auth

import (
	"encoding/base64"
	"os"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"

	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/models"
)

// Auth struct represents parsed jwt information.
type Auth struct {
	UID      string   `json:"uid"`
	Email    string   `json:"email"`
	Role     string   `json:"role"`
	Audience []string `json:"aud,omitempty"`

	jwt.StandardClaims
}

func GetCurrentUser(c *fiber.Ctx) *models.Member {
	var err error
	var auth Auth
	member := &models.Member{}
	token := c.Get("Authorization")
	token = strings.Replace(token, "Bearer ", "", -1)

	public_key_pem, err := base64.StdEncoding.DecodeString(os.Getenv("JWT_PUBLIC_KEY"))

	if err != nil {
		c.Status(500).JSON(fiber.Map{
			"errors": []string{"jwt.decode_and_verify"},
		})
		return nil
	}

	public_key, err := jwt.ParseRSAPublicKeyFromPEM(public_key_pem)

	if err != nil {
		c.Status(500).JSON(fiber.Map{
			"errors": []string{"jwt.decode_and_verify"},
		})
		return nil
	}

	_, err = jwt.ParseWithClaims(token, &auth, func(t *jwt.Token) (interface{}, error) {
		return public_key, nil
	})

	if err != nil {
		c.Status(500).JSON(fiber.Map{
			"errors": []string{"jwt.decode_and_verify"},
		})
		return nil
	}

	config.DataBase.Where(
		&models.Member{
			UID: auth.UID,
		},
	).Attrs(
		models.Member{
			Email: auth.Email,
			Role:  auth.Role,
		},
	).FirstOrCreate(&member)

	return member
}

// GetCurrentAdmin resolves the caller and rejects non-admin roles.
func GetCurrentAdmin(c *fiber.Ctx) *models.Member {
	member := GetCurrentUser(c)
	if member == nil {
		return nil
	}

	if member.Role != models.RoleAdmin {
		c.Status(403).JSON(fiber.Map{
			"errors": []string{"auth.admin_required"},
		})
		return nil
	}

	return member
}
