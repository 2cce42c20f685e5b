package inventory

import (
	"fmt"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CategoryResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	ProductCount int64  `json:"product_count"`
	CreatedAt    string `json:"created_at"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

func toCategoryResponse(cat models.Category, count int64) CategoryResponse {
	return CategoryResponse{
		ID:           cat.ID,
		Name:         cat.Name,
		Description:  cat.Description,
		Active:       cat.Active,
		ProductCount: count,
		CreatedAt:    cat.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func parseID(c *fiber.Ctx, msg string) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, msg)
	}
	return uint(id), nil
}

// GET /api/categories?active=true
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cats, err := ListCategories(database.DB, c.QueryBool("active", false))
		if err != nil {
			return apperr.ToFiber(err, "Kategoriler listelenemedi")
		}

		res := make([]CategoryResponse, 0, len(cats))
		for _, cat := range cats {
			res = append(res, toCategoryResponse(cat.Category, cat.ProductCount))
		}
		return c.JSON(fiber.Map{
			"success":    true,
			"message":    fmt.Sprintf("%d kategori", len(res)),
			"categories": res,
		})
	}
}

// POST /api/admin/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		active := true
		if body.Active != nil {
			active = *body.Active
		}

		cat, err := CreateCategory(database.DB, actor, CategoryInput{
			Name:        body.Name,
			Description: body.Description,
			Active:      active,
		})
		if err != nil {
			return apperr.ToFiber(err, "Kategori oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":  true,
			"message":  "Kategori oluşturuldu",
			"category": toCategoryResponse(cat, 0),
		})
	}
}

// PUT /api/admin/categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "Geçersiz kategori ID")
		if err != nil {
			return err
		}

		var body UpdateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		cat, err := UpdateCategory(database.DB, actor, id, UpdateCategoryInput{
			Name:        body.Name,
			Description: body.Description,
			Active:      body.Active,
		})
		if err != nil {
			return apperr.ToFiber(err, "Kategori güncellenemedi")
		}

		var count int64
		database.DB.Model(&models.Product{}).Where("category_id = ?", cat.ID).Count(&count)

		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "Kategori güncellendi",
			"category": toCategoryResponse(cat, count),
		})
	}
}

// DELETE /api/admin/categories/:id
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "Geçersiz kategori ID")
		if err != nil {
			return err
		}

		if err := DeleteCategory(database.DB, actor, id); err != nil {
			return apperr.ToFiber(err, "Kategori silinemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Kategori silindi",
		})
	}
}

// GET /api/categories/:id/products
// Komanda ekranında kategori seçilince satıştaki ürünler
func ProductsByCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "Geçersiz kategori ID")
		if err != nil {
			return err
		}

		products, err := ProductsByCategory(database.DB, id)
		if err != nil {
			return apperr.ToFiber(err, "Ürünler alınamadı")
		}

		res := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			res = append(res, toProductResponse(p))
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "",
			"products": res,
		})
	}
}
