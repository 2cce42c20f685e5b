package auth

import (
	"errors"
	"fmt"
	"strings"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var errLastAdmin = errors.New("son aktif admin")

func countActiveAdmins(tx *gorm.DB) (int64, error) {
	var n int64
	err := tx.Model(&models.User{}).
		Where("role = ? AND active = ?", models.RoleAdmin, true).
		Count(&n).Error
	return n, err
}

type CreateUserRequest struct {
	Username string          `json:"username"`
	Name     string          `json:"name"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type UpdateUserRequest struct {
	Name     *string          `json:"name"`
	Role     *models.UserRole `json:"role"`
	Active   *bool            `json:"active"`
	Password *string          `json:"password"` // admin şifre sıfırlama
}

// GET /api/admin/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.User{})
		if role := c.Query("role"); role != "" {
			dbq = dbq.Where("role = ?", role)
		}

		var users []models.User
		if err := dbq.Order("username asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, toUserResponse(u))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("%d kullanıcı", len(res)),
			"users":   res,
		})
	}
}

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))
		if body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kullanıcı adı ve şifre zorunlu")
		}
		if len(body.Password) < minPasswordLength {
			return fiber.NewError(fiber.StatusBadRequest, "Şifre en az 6 karakter olmalı")
		}
		if !body.Role.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz rol ("+models.RoleNames()+")")
		}

		hash, err := hashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			Username:     body.Username,
			Name:         strings.TrimSpace(body.Name),
			PasswordHash: hash,
			Role:         body.Role,
			Active:       true,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      actor.UserID,
				UserName:    actor.Name,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Kullanıcı oluşturuldu: %s (%s)", user.Username, user.Role),
				After:       toUserResponse(user),
			})
		})
		if isDuplicate(err) {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%q kullanıcı adı zaten kullanılıyor", body.Username))
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Kullanıcı oluşturuldu",
			"user":    toUserResponse(user),
		})
	}
}

// PUT /api/admin/users/:id
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := CurrentActor(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz kullanıcı ID")
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}
		before := toUserResponse(user)

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.Name != nil {
			user.Name = strings.TrimSpace(*body.Name)
		}
		if body.Role != nil {
			if !body.Role.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz rol ("+models.RoleNames()+")")
			}
			if *body.Role != user.Role && user.ID == actor.UserID {
				return fiber.NewError(fiber.StatusBadRequest, "Kendi rolünüzü değiştiremezsiniz")
			}
			user.Role = *body.Role
		}
		if body.Active != nil {
			// Admin kendini pasife alırsa sisteme kimse giremeyebilir
			if !*body.Active && user.ID == actor.UserID {
				return fiber.NewError(fiber.StatusBadRequest, "Kendi hesabınızı pasife alamazsınız")
			}
			user.Active = *body.Active
		}
		if body.Password != nil {
			if len(*body.Password) < minPasswordLength {
				return fiber.NewError(fiber.StatusBadRequest, "Şifre en az 6 karakter olmalı")
			}
			hash, err := hashPassword(*body.Password)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
			}
			user.PasswordHash = hash
		}

		demoted := before.Role == models.RoleAdmin && before.Active &&
			(user.Role != models.RoleAdmin || !user.Active)

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&user).Error; err != nil {
				return err
			}
			if demoted {
				// Aktif admin kalmazsa register-admin tekrar açılır
				remaining, err := countActiveAdmins(tx)
				if err != nil {
					return err
				}
				if remaining == 0 {
					return errLastAdmin
				}
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      actor.UserID,
				UserName:    actor.Name,
				EntityType:  "user",
				EntityID:    user.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Kullanıcı güncellendi: %s", user.Username),
				Before:      before,
				After:       toUserResponse(user),
			})
		})
		if errors.Is(err, errLastAdmin) {
			return fiber.NewError(fiber.StatusBadRequest, "Sistemde en az bir aktif admin kalmalı")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı güncellenemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Kullanıcı güncellendi",
			"user":    toUserResponse(user),
		})
	}
}
