package cashier

import (
	"errors"
	"fmt"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/config"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SalesResponse struct {
	Cash     string `json:"cash"`
	Card     string `json:"card"`
	Transfer string `json:"transfer"`
	Total    string `json:"total"`
	Count    int    `json:"count"`
}

type ShiftResponse struct {
	ID           uint               `json:"id"`
	UserID       uint               `json:"user_id"`
	UserName     string             `json:"user_name,omitempty"`
	OpeningFloat string             `json:"opening_float"`
	ClosingFloat *string            `json:"closing_float"`
	OpenedAt     time.Time          `json:"opened_at"`
	ClosedAt     *time.Time         `json:"closed_at"`
	Status       models.ShiftStatus `json:"status"`
	Notes        string             `json:"notes"`
}

type PaymentResponse struct {
	ID         uint                 `json:"id"`
	OrderID    uint                 `json:"order_id"`
	ShiftID    uint                 `json:"shift_id"`
	Method     models.PaymentMethod `json:"method"`
	Amount     string               `json:"amount"`
	Received   string               `json:"received"`
	Change     string               `json:"change"`
	TicketCode string               `json:"ticket_code"`
	PaidAt     time.Time            `json:"paid_at"`
}

type PendingOrderResponse struct {
	OrderID     uint      `json:"order_id"`
	TableNumber int       `json:"table_number"`
	WaiterName  string    `json:"waiter_name"`
	Total       string    `json:"total"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type ReportResponse struct {
	Shift        ShiftResponse     `json:"shift"`
	Sales        SalesResponse     `json:"sales"`
	Payments     []PaymentResponse `json:"payments"`
	ExpectedCash *string           `json:"expected_cash"`
	Discrepancy  *string           `json:"discrepancy"`
}

type TicketItemResponse struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type OpenShiftRequest struct {
	OpeningFloat decimal.Decimal `json:"opening_float"`
	Notes        string          `json:"notes"`
}

type CloseShiftRequest struct {
	ClosingFloat decimal.Decimal `json:"closing_float"`
	Notes        string          `json:"notes"`
}

type PaymentRequest struct {
	OrderID  uint                 `json:"order_id"`
	Method   models.PaymentMethod `json:"method"`
	Received decimal.Decimal      `json:"received"`
}

func toSalesResponse(s SalesTotals) SalesResponse {
	return SalesResponse{
		Cash:     s.Cash.StringFixed(2),
		Card:     s.Card.StringFixed(2),
		Transfer: s.Transfer.StringFixed(2),
		Total:    s.Total.StringFixed(2),
		Count:    s.Count,
	}
}

func toShiftResponse(s models.Shift) ShiftResponse {
	res := ShiftResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		UserName:     s.User.DisplayName(),
		OpeningFloat: s.OpeningFloat.StringFixed(2),
		OpenedAt:     s.OpenedAt,
		ClosedAt:     s.ClosedAt,
		Status:       s.Status,
		Notes:        s.Notes,
	}
	if s.ClosingFloat.Valid {
		v := s.ClosingFloat.Decimal.StringFixed(2)
		res.ClosingFloat = &v
	}
	return res
}

func toPaymentResponse(p models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		OrderID:    p.OrderID,
		ShiftID:    p.ShiftID,
		Method:     p.Method,
		Amount:     p.Amount.StringFixed(2),
		Received:   p.Received.StringFixed(2),
		Change:     p.Change.StringFixed(2),
		TicketCode: p.TicketCode,
		PaidAt:     p.PaidAt,
	}
}

func toPendingResponse(list []models.Order) []PendingOrderResponse {
	res := make([]PendingOrderResponse, 0, len(list))
	for _, o := range list {
		res = append(res, PendingOrderResponse{
			OrderID:     o.ID,
			TableNumber: o.Table.Number,
			WaiterName:  o.Waiter.DisplayName(),
			Total:       o.Total.StringFixed(2),
			DeliveredAt: o.UpdatedAt,
		})
	}
	return res
}

func toReportResponse(r ShiftReport) ReportResponse {
	res := ReportResponse{
		Shift:    toShiftResponse(r.Shift),
		Sales:    toSalesResponse(r.Sales),
		Payments: make([]PaymentResponse, 0, len(r.Payments)),
	}
	for _, p := range r.Payments {
		res.Payments = append(res.Payments, toPaymentResponse(p))
	}
	if r.ExpectedCash != nil {
		expected := r.ExpectedCash.StringFixed(2)
		diff := r.Discrepancy.StringFixed(2)
		res.ExpectedCash = &expected
		res.Discrepancy = &diff
	}
	return res
}

func parseID(c *fiber.Ctx, msg string) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, msg)
	}
	return uint(id), nil
}

// GET /api/cashier/dashboard
func DashboardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		d, err := GetDashboard(database.DB, actor)
		if err != nil {
			return apperr.ToFiber(err, "Kasa ekranı yüklenemedi")
		}

		var shift *ShiftResponse
		if d.OpenShift != nil {
			s := toShiftResponse(*d.OpenShift)
			shift = &s
		}
		return c.JSON(fiber.Map{
			"success":          true,
			"message":          "",
			"open_shift":       shift,
			"sales":            toSalesResponse(d.Sales),
			"pending_payments": toPendingResponse(d.PendingPayments),
		})
	}
}

// POST /api/cashier/shifts/open
func OpenShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body OpenShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		s, err := OpenShift(database.DB, actor, body.OpeningFloat, body.Notes)
		if err != nil {
			return apperr.ToFiber(err, "Vardiya açılamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Vardiya #%d açıldı", s.ID),
			"shift":   toShiftResponse(s),
		})
	}
}

// POST /api/cashier/shifts/close
// Ödenmemiş teslim edilmiş komanda varsa 400 ve unpaid_orders sayısı döner
func CloseShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body CloseShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		s, err := CloseShift(database.DB, actor, body.ClosingFloat, body.Notes)
		if err != nil {
			var ae *apperr.Error
			if errors.As(err, &ae) && ae.Count > 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success":       false,
					"message":       ae.Message,
					"unpaid_orders": ae.Count,
				})
			}
			return apperr.ToFiber(err, "Vardiya kapatılamadı")
		}

		r, err := Report(database.DB, actor, s.ID)
		if err != nil {
			return apperr.ToFiber(err, "Vardiya raporu alınamadı")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Vardiya #%d kapandı", s.ID),
			"report":  toReportResponse(r),
		})
	}
}

// POST /api/cashier/payments
func ProcessPaymentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		var body PaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.OrderID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "order_id zorunlu")
		}

		p, err := ProcessPayment(database.DB, actor, body.OrderID, body.Method, body.Received)
		if err != nil {
			return apperr.ToFiber(err, "Ödeme alınamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("Ödeme alındı, para üstü %s", p.Change.StringFixed(2)),
			"payment": toPaymentResponse(p),
		})
	}
}

// GET /api/cashier/payments/pending
func PendingPaymentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := PendingPayments(database.DB)
		if err != nil {
			return apperr.ToFiber(err, "Ödeme bekleyen komandalar alınamadı")
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("%d komanda ödeme bekliyor", len(list)),
			"orders":  toPendingResponse(list),
		})
	}
}

// GET /api/cashier/payments/:id/ticket
func TicketHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "Geçersiz ödeme ID")
		if err != nil {
			return err
		}

		t, err := GetTicket(database.DB, id)
		if err != nil {
			return apperr.ToFiber(err, "Fiş alınamadı")
		}

		items := make([]TicketItemResponse, 0, len(t.Order.Items))
		for _, it := range t.Order.Items {
			items = append(items, TicketItemResponse{
				ProductName: it.Product.Name,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice.StringFixed(2),
				Subtotal:    it.Subtotal.StringFixed(2),
			})
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"message":      "",
			"payment":      toPaymentResponse(t.Payment),
			"order_id":     t.Order.ID,
			"table_number": t.Order.Table.Number,
			"waiter_name":  t.Order.Waiter.DisplayName(),
			"cashier_name": t.Cashier.DisplayName(),
			"items":        items,
		})
	}
}

// GET /api/cashier/shifts?page=
func ShiftHistoryHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}

		res, err := History(database.DB, actor, c.QueryInt("page", 1), cfg.PageSize)
		if err != nil {
			return apperr.ToFiber(err, "Vardiya geçmişi alınamadı")
		}

		list := make([]ShiftResponse, 0, len(res.Shifts))
		for _, s := range res.Shifts {
			list = append(list, toShiftResponse(s))
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("%d vardiya", res.Total),
			"shifts":  list,
			"total":   res.Total,
			"page":    res.Page,
			"pages":   res.Pages,
		})
	}
}

// GET /api/cashier/shifts/:id/report
func ShiftReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "Geçersiz vardiya ID")
		if err != nil {
			return err
		}

		r, err := Report(database.DB, actor, id)
		if err != nil {
			return apperr.ToFiber(err, "Vardiya raporu alınamadı")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "",
			"report":  toReportResponse(r),
		})
	}
}

// GET /api/cashier/shifts/:id/report.xlsx
func ExportShiftReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentActor(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "Geçersiz vardiya ID")
		if err != nil {
			return err
		}

		r, err := Report(database.DB, actor, id)
		if err != nil {
			return apperr.ToFiber(err, "Vardiya raporu alınamadı")
		}

		buf, err := ReportWorkbook(r)
		if err != nil {
			return apperr.ToFiber(err, "Excel oluşturulamadı")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="vardiya-%d.xlsx"`, r.Shift.ID))
		return c.Send(buf.Bytes())
	}
}
