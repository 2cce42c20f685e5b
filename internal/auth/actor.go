package auth

import (
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
)

const CtxActorKey = "actor"

// Actor: isteği yapan kullanıcı. Servis fonksiyonlarına açıkça geçirilir.
type Actor struct {
	UserID   uint
	Username string
	Name     string
	Role     models.UserRole
}

func ActorFromUser(u models.User) Actor {
	return Actor{
		UserID:   u.ID,
		Username: u.Username,
		Name:     u.DisplayName(),
		Role:     u.Role,
	}
}

func (a Actor) Is(roles ...models.UserRole) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// CurrentActor JWTMiddleware'in koyduğu aktörü döndürür
func CurrentActor(c *fiber.Ctx) (Actor, error) {
	actor, ok := c.Locals(CtxActorKey).(Actor)
	if !ok {
		return Actor{}, fiber.NewError(fiber.StatusUnauthorized, "Kullanıcı bilgisi alınamadı")
	}
	return actor, nil
}
