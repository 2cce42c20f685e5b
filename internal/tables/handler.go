package tables

import (
	"fmt"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
)

type TableResponse struct {
	ID       uint               `json:"id"`
	Number   int                `json:"number"`
	Capacity int                `json:"capacity"`
	Location string             `json:"location"`
	Status   models.TableStatus `json:"status"`
}

type ActiveOrderResponse struct {
	OrderID    uint               `json:"order_id"`
	Status     models.OrderStatus `json:"status"`
	WaiterName string             `json:"waiter_name"`
	Total      string             `json:"total"`
	ItemCount  int64              `json:"item_count"`
}

type MapEntryResponse struct {
	TableResponse
	ActiveOrder *ActiveOrderResponse `json:"active_order"`
}

type CreateTableRequest struct {
	Number   int    `json:"number"`
	Capacity int    `json:"capacity"`
	Location string `json:"location"`
}

type UpdateTableRequest struct {
	Number   *int                `json:"number"`
	Capacity *int                `json:"capacity"`
	Location *string             `json:"location"`
	Status   *models.TableStatus `json:"status"`
}

type ChangeStatusRequest struct {
	Status models.TableStatus `json:"status"`
}

func toTableResponse(t models.Table) TableResponse {
	return TableResponse{
		ID:       t.ID,
		Number:   t.Number,
		Capacity: t.Capacity,
		Location: t.Location,
		Status:   t.Status,
	}
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz masa ID")
	}
	return uint(id), nil
}

// GET /api/tables
func ListTablesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := List(database.DB)
		if err != nil {
			return apperr.ToFiber(err, "Masalar listelenemedi")
		}

		res := make([]TableResponse, 0, len(list))
		for _, t := range list {
			res = append(res, toTableResponse(t))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("%d masa", len(res)),
			"tables":  res,
		})
	}
}

// GET /api/tables/map
func TableMapHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := Map(database.DB)
		if err != nil {
			return apperr.ToFiber(err, "Masa haritası oluşturulamadı")
		}

		res := make([]MapEntryResponse, 0, len(entries))
		for _, e := range entries {
			item := MapEntryResponse{TableResponse: toTableResponse(e.Table)}
			if e.ActiveOrder != nil {
				item.ActiveOrder = &ActiveOrderResponse{
					OrderID:    e.ActiveOrder.OrderID,
					Status:     e.ActiveOrder.Status,
					WaiterName: e.ActiveOrder.WaiterName,
					Total:      e.ActiveOrder.Total,
					ItemCount:  e.ActiveOrder.ItemCount,
				}
			}
			res = append(res, item)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "",
			"tables":  res,
		})
	}
}

// GET /api/tables/status
// Salon ekranının periyodik olarak çektiği hafif durum listesi
func TableStatusSnapshotHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := List(database.DB)
		if err != nil {
			return apperr.ToFiber(err, "Masa durumları alınamadı")
		}

		res := make([]TableResponse, 0, len(list))
		for _, t := range list {
			res = append(res, toTableResponse(t))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "",
			"tables":  res,
		})
	}
}

// GET /api/tables/:id
func GetTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		t, err := Get(database.DB, id)
		if err != nil {
			return apperr.ToFiber(err, "Masa alınamadı")
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "",
			"table":   toTableResponse(t),
		})
	}
}

// POST /api/tables (admin)
func CreateTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CreateTableRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		t, err := Create(database.DB, actor, TableInput{
			Number:   body.Number,
			Capacity: body.Capacity,
			Location: body.Location,
		})
		if err != nil {
			return apperr.ToFiber(err, "Masa oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Masa %d oluşturuldu", t.Number),
			"table":   toTableResponse(t),
		})
	}
}

// PUT /api/tables/:id (admin)
func UpdateTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		var body UpdateTableRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		t, err := Update(database.DB, actor, id, UpdateTableInput{
			Number:   body.Number,
			Capacity: body.Capacity,
			Location: body.Location,
			Status:   body.Status,
		})
		if err != nil {
			return apperr.ToFiber(err, "Masa güncellenemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Masa %d güncellendi", t.Number),
			"table":   toTableResponse(t),
		})
	}
}

// DELETE /api/tables/:id (admin)
func DeleteTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		if err := Delete(database.DB, actor, id); err != nil {
			return apperr.ToFiber(err, "Masa silinemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Masa silindi",
		})
	}
}

// POST /api/tables/:id/status (admin, waiter)
func ChangeTableStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c)
		if err != nil {
			return err
		}

		var body ChangeStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		t, err := ChangeStatus(database.DB, actor, id, body.Status)
		if err != nil {
			return apperr.ToFiber(err, "Masa durumu değiştirilemedi")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Masa %d durumu: %s", t.Number, t.Status),
			"table":   toTableResponse(t),
		})
	}
}
