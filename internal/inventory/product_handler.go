package inventory

import (
	"fmt"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ProductResponse struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	CategoryID       uint   `json:"category_id"`
	CategoryName     string `json:"category_name,omitempty"`
	Price            string `json:"price"`
	Stock            int    `json:"stock"`
	ReorderThreshold int    `json:"reorder_threshold"`
	Available        bool   `json:"available"`
	NeedsRestock     bool   `json:"needs_restock"`
}

type CreateProductRequest struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	CategoryID       uint            `json:"category_id"`
	Price            decimal.Decimal `json:"price"`
	Stock            int             `json:"stock"`
	ReorderThreshold *int            `json:"reorder_threshold"` // boşsa 5
	Available        *bool           `json:"available"`
}

type UpdateProductRequest struct {
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	CategoryID       *uint            `json:"category_id"`
	Price            *decimal.Decimal `json:"price"`
	ReorderThreshold *int             `json:"reorder_threshold"`
	Available        *bool            `json:"available"`
}

type AdjustStockRequest struct {
	Direction StockDirection `json:"direction"` // increase | decrease
	Quantity  int            `json:"quantity"`
	Reason    string         `json:"reason"`
}

func toProductResponse(p models.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		CategoryID:       p.CategoryID,
		CategoryName:     p.Category.Name,
		Price:            p.Price.StringFixed(2),
		Stock:            p.Stock,
		ReorderThreshold: p.ReorderThreshold,
		Available:        p.Available,
		NeedsRestock:     p.NeedsRestock(),
	}
}

// GET /api/products?search=&category_id=&available=&low_stock=true
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := ProductFilter{
			Search:   c.Query("search"),
			LowStock: c.QueryBool("low_stock", false),
		}
		if cid := c.QueryInt("category_id", 0); cid > 0 {
			f.CategoryID = uint(cid)
		}
		switch c.Query("available") {
		case "true":
			v := true
			f.Available = &v
		case "false":
			v := false
			f.Available = &v
		}

		products, err := ListProducts(database.DB, f)
		if err != nil {
			return apperr.ToFiber(err, "Ürünler listelenemedi")
		}

		res := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			res = append(res, toProductResponse(p))
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  fmt.Sprintf("%d ürün", len(res)),
			"products": res,
		})
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "Geçersiz ürün ID")
		if err != nil {
			return err
		}
		p, err := GetProduct(database.DB, id)
		if err != nil {
			return apperr.ToFiber(err, "Ürün alınamadı")
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "",
			"product": toProductResponse(p),
		})
	}
}

// GET /api/admin/products/low-stock
func LowStockReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := LowStock(database.DB)
		if err != nil {
			return apperr.ToFiber(err, "Kritik stok raporu alınamadı")
		}

		res := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			res = append(res, toProductResponse(p))
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  fmt.Sprintf("%d ürün kritik stokta", len(res)),
			"products": res,
		})
	}
}

// POST /api/admin/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		p, err := CreateProduct(database.DB, actor, ProductInput{
			Name:             body.Name,
			Description:      body.Description,
			CategoryID:       body.CategoryID,
			Price:            body.Price,
			Stock:            body.Stock,
			ReorderThreshold: body.ReorderThreshold,
			Available:        body.Available,
		})
		if err != nil {
			return apperr.ToFiber(err, "Ürün oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Ürün oluşturuldu",
			"product": toProductResponse(p),
		})
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "Geçersiz ürün ID")
		if err != nil {
			return err
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		p, err := UpdateProduct(database.DB, actor, id, UpdateProductInput{
			Name:             body.Name,
			Description:      body.Description,
			CategoryID:       body.CategoryID,
			Price:            body.Price,
			ReorderThreshold: body.ReorderThreshold,
			Available:        body.Available,
		})
		if err != nil {
			return apperr.ToFiber(err, "Ürün güncellenemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Ürün güncellendi",
			"product": toProductResponse(p),
		})
	}
}

// DELETE /api/admin/products/:id
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "Geçersiz ürün ID")
		if err != nil {
			return err
		}

		if err := DeleteProduct(database.DB, actor, id); err != nil {
			return apperr.ToFiber(err, "Ürün silinemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Ürün silindi",
		})
	}
}

// POST /api/admin/products/:id/stock
func AdjustStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "Geçersiz ürün ID")
		if err != nil {
			return err
		}

		var body AdjustStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		p, err := AdjustStock(database.DB, actor, id, body.Direction, body.Quantity, body.Reason)
		if err != nil {
			return apperr.ToFiber(err, "Stok güncellenemedi")
		}

		return c.JSON(fiber.Map{
			"success":       true,
			"message":       fmt.Sprintf("%s stoğu: %d", p.Name, p.Stock),
			"stock":         p.Stock,
			"needs_restock": p.NeedsRestock(),
		})
	}
}
