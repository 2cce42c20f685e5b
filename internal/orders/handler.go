package orders

import (
	"fmt"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/config"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
)

type OrderItemResponse struct {
	ID          uint   `json:"id"`
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
	Notes       string `json:"notes"`
}

type OrderResponse struct {
	ID           uint                 `json:"id"`
	TableID      uint                 `json:"table_id"`
	TableNumber  int                  `json:"table_number"`
	WaiterID     uint                 `json:"waiter_id"`
	WaiterName   string               `json:"waiter_name"`
	Status       models.OrderStatus   `json:"status"`
	NextStatuses []models.OrderStatus `json:"next_statuses"`
	Notes        string               `json:"notes"`
	Total        string               `json:"total"`
	Paid         bool                 `json:"paid"`
	Items        []OrderItemResponse  `json:"items"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type CreateOrderRequest struct {
	TableID uint   `json:"table_id"`
	Notes   string `json:"notes"`
}

type AddItemRequest struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
}

type ChangeStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

func toOrderResponse(o models.Order, role models.UserRole) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Subtotal:    it.Subtotal.StringFixed(2),
			Notes:       it.Notes,
		})
	}

	next := NextStatuses(role, o.Status)
	if next == nil {
		next = []models.OrderStatus{}
	}

	return OrderResponse{
		ID:           o.ID,
		TableID:      o.TableID,
		TableNumber:  o.Table.Number,
		WaiterID:     o.WaiterID,
		WaiterName:   o.Waiter.DisplayName(),
		Status:       o.Status,
		NextStatuses: next,
		Notes:        o.Notes,
		Total:        o.Total.StringFixed(2),
		Paid:         o.Payment != nil,
		Items:        items,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func parseID(c *fiber.Ctx, name, msg string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, msg)
	}
	return uint(id), nil
}

// GET /api/orders?status=&page=
// Rol bazlı: mutfak aktif kuyruğu, garson kendi komandaları, admin/kasiyer tümü
func ListOrdersHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		res, err := List(database.DB, actor, ListFilter{
			Status:   models.OrderStatus(c.Query("status")),
			Page:     c.QueryInt("page", 1),
			PageSize: cfg.PageSize,
		})
		if err != nil {
			return apperr.ToFiber(err, "Komandalar listelenemedi")
		}

		list := make([]OrderResponse, 0, len(res.Orders))
		for _, o := range res.Orders {
			list = append(list, toOrderResponse(o, actor.Role))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("%d komanda", res.Total),
			"orders":  list,
			"total":   res.Total,
			"page":    res.Page,
			"pages":   res.Pages,
		})
	}
}

// GET /api/orders/kitchen
// Mutfak ekranının periyodik olarak çektiği aktif komandalar
func KitchenActiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		list, err := KitchenActive(database.DB)
		if err != nil {
			return apperr.ToFiber(err, "Mutfak komandaları alınamadı")
		}

		res := make([]OrderResponse, 0, len(list))
		for _, o := range list {
			res = append(res, toOrderResponse(o, actor.Role))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("%d aktif komanda", len(res)),
			"orders":  res,
		})
	}
}

// GET /api/orders/:id
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "id", "Geçersiz komanda ID")
		if err != nil {
			return err
		}

		o, err := GetFor(database.DB, actor, id)
		if err != nil {
			return apperr.ToFiber(err, "Komanda alınamadı")
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "",
			"order":   toOrderResponse(o, actor.Role),
		})
	}
}

// POST /api/orders (admin, waiter)
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.TableID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "table_id zorunlu")
		}

		o, err := Create(database.DB, actor, body.TableID, body.Notes)
		if err != nil {
			return apperr.ToFiber(err, "Komanda oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Masa %d için komanda açıldı", o.Table.Number),
			"order":   toOrderResponse(o, actor.Role),
		})
	}
}

// POST /api/orders/:id/items (admin, waiter)
func AddItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "id", "Geçersiz komanda ID")
		if err != nil {
			return err
		}

		var body AddItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id zorunlu")
		}

		o, err := AddItem(database.DB, actor, id, body.ProductID, body.Quantity, body.Notes)
		if err != nil {
			return apperr.ToFiber(err, "Kalem eklenemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Kalem eklendi",
			"order":   toOrderResponse(o, actor.Role),
		})
	}
}

// DELETE /api/orders/items/:itemId (admin, waiter)
func RemoveItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		itemID, err := parseID(c, "itemId", "Geçersiz kalem ID")
		if err != nil {
			return err
		}

		o, err := RemoveItem(database.DB, actor, itemID)
		if err != nil {
			return apperr.ToFiber(err, "Kalem çıkarılamadı")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Kalem çıkarıldı",
			"total":   o.Total.StringFixed(2),
			"order":   toOrderResponse(o, actor.Role),
		})
	}
}

// POST /api/orders/:id/status (admin, kitchen, waiter)
func ChangeStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "id", "Geçersiz komanda ID")
		if err != nil {
			return err
		}

		var body ChangeStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		o, err := ChangeStatus(database.DB, actor, id, body.Status)
		if err != nil {
			return apperr.ToFiber(err, "Komanda durumu değiştirilemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Komanda #%d durumu: %s", o.ID, o.Status),
			"order":   toOrderResponse(o, actor.Role),
		})
	}
}

// POST /api/orders/:id/cancel (admin, waiter)
func CancelOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "id", "Geçersiz komanda ID")
		if err != nil {
			return err
		}

		o, err := Cancel(database.DB, actor, id)
		if err != nil {
			return apperr.ToFiber(err, "Komanda iptal edilemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Komanda #%d iptal edildi", o.ID),
			"order":   toOrderResponse(o, actor.Role),
		})
	}
}
