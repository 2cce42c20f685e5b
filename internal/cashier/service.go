// Package cashier kasiyer vardiyalarını, ödemeleri ve vardiya mutabakatını yönetir.
package cashier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/tables"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesTotals: ödeme yöntemine göre satış toplamları
type SalesTotals struct {
	Cash     decimal.Decimal
	Card     decimal.Decimal
	Transfer decimal.Decimal
	Total    decimal.Decimal
	Count    int
}

func (s *SalesTotals) add(p models.Payment) {
	switch p.Method {
	case models.PaymentCash:
		s.Cash = s.Cash.Add(p.Amount)
	case models.PaymentCard:
		s.Card = s.Card.Add(p.Amount)
	case models.PaymentTransfer:
		s.Transfer = s.Transfer.Add(p.Amount)
	}
	s.Total = s.Total.Add(p.Amount)
	s.Count++
}

func sumPayments(payments []models.Payment) SalesTotals {
	var s SalesTotals
	for _, p := range payments {
		s.add(p)
	}
	return s
}

type ShiftReport struct {
	Shift    models.Shift
	Payments []models.Payment
	Sales    SalesTotals
	// kapanmış vardiyada dolu
	ExpectedCash *decimal.Decimal
	Discrepancy  *decimal.Decimal
}

type Dashboard struct {
	OpenShift       *models.Shift
	Sales           SalesTotals
	PendingPayments []models.Order
}

type HistoryResult struct {
	Shifts []models.Shift
	Total  int64
	Page   int
	Pages  int
}

type Ticket struct {
	Payment models.Payment
	Order   models.Order
	Cashier models.User
}

// OpenShiftFor kullanıcının açık vardiyasını döndürür, yoksa nil
func OpenShiftFor(tx *gorm.DB, userID uint) (*models.Shift, error) {
	var s models.Shift
	err := tx.Where("user_id = ? AND status = ?", userID, models.ShiftOpen).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountUnpaidDelivered: teslim edilmiş ama ödemesi alınmamış komanda sayısı (tüm vardiyalar)
func CountUnpaidDelivered(tx *gorm.DB) (int64, error) {
	var count int64
	err := tx.Model(&models.Order{}).
		Joins("LEFT JOIN payments ON payments.order_id = orders.id").
		Where("orders.status = ? AND payments.id IS NULL", models.OrderDelivered).
		Count(&count).Error
	return count, err
}

// PendingPayments: ödeme bekleyen teslim edilmiş komandalar, eskiden yeniye
func PendingPayments(db *gorm.DB) ([]models.Order, error) {
	var list []models.Order
	err := db.
		Preload("Table").
		Preload("Waiter").
		Joins("LEFT JOIN payments ON payments.order_id = orders.id").
		Where("orders.status = ? AND payments.id IS NULL", models.OrderDelivered).
		Order("orders.updated_at asc").
		Find(&list).Error
	return list, err
}

func OpenShift(db *gorm.DB, actor auth.Actor, openingFloat decimal.Decimal, notes string) (models.Shift, error) {
	if openingFloat.IsNegative() {
		return models.Shift{}, apperr.Validation("Açılış kasası negatif olamaz")
	}

	s := models.Shift{
		UserID:       actor.UserID,
		OpeningFloat: openingFloat.Round(2),
		OpenedAt:     time.Now(),
		Status:       models.ShiftOpen,
		Notes:        strings.TrimSpace(notes),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		existing, err := OpenShiftFor(tx, actor.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("Zaten açık bir vardiyanız var (#%d)", existing.ID)
		}

		if err := tx.Create(&s).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("Zaten açık bir vardiyanız var")
			}
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "shift",
			EntityID:    s.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Vardiya #%d açıldı, açılış kasası %s", s.ID, s.OpeningFloat.StringFixed(2)),
			After:       map[string]any{"opening_float": s.OpeningFloat.StringFixed(2)},
		})
	})
	return s, err
}

// CloseShift: ödemesi alınmamış teslim edilmiş komanda varken vardiya kapanmaz.
// Engelleyen komanda sayısı hatanın Count alanında döner.
func CloseShift(db *gorm.DB, actor auth.Actor, closingFloat decimal.Decimal, notes string) (models.Shift, error) {
	if closingFloat.IsNegative() {
		return models.Shift{}, apperr.Validation("Kapanış kasası negatif olamaz")
	}

	var s models.Shift
	err := db.Transaction(func(tx *gorm.DB) error {
		open, err := OpenShiftFor(tx, actor.UserID)
		if err != nil {
			return err
		}
		if open == nil {
			return apperr.Conflict("Açık vardiyanız yok")
		}
		s = *open

		unpaid, err := CountUnpaidDelivered(tx)
		if err != nil {
			return err
		}
		if unpaid > 0 {
			return &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: fmt.Sprintf("Ödemesi alınmamış %d komanda var, vardiya kapatılamaz", unpaid),
				Count:   unpaid,
			}
		}

		now := time.Now()
		s.ClosingFloat = decimal.NewNullDecimal(closingFloat.Round(2))
		s.ClosedAt = &now
		s.Status = models.ShiftClosed
		if n := strings.TrimSpace(notes); n != "" {
			if s.Notes != "" {
				s.Notes += "\n"
			}
			s.Notes += "Kapanış: " + n
		}

		res := tx.Model(&models.Shift{}).
			Where("id = ? AND status = ?", s.ID, models.ShiftOpen).
			Updates(map[string]any{
				"closing_float": s.ClosingFloat,
				"closed_at":     s.ClosedAt,
				"status":        s.Status,
				"notes":         s.Notes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Vardiya başka bir işlemle kapatıldı")
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "shift",
			EntityID:    s.ID,
			Action:      models.AuditActionStatus,
			Description: fmt.Sprintf("Vardiya #%d kapandı, kapanış kasası %s", s.ID, closingFloat.StringFixed(2)),
			Before:      map[string]any{"status": models.ShiftOpen},
			After:       map[string]any{"status": models.ShiftClosed, "closing_float": closingFloat.StringFixed(2)},
		})
	})
	return s, err
}

// ProcessPayment: komanda teslim edilmiş olmalı, ödemesi olmamalı ve kasiyerin
// açık vardiyası bulunmalı. Nakitte alınan >= toplam, para üstü = alınan - toplam.
// Kart/havalede alınan toplama eşitlenir, para üstü sıfırdır.
func ProcessPayment(db *gorm.DB, actor auth.Actor, orderID uint, method models.PaymentMethod, received decimal.Decimal) (models.Payment, error) {
	if !method.Valid() {
		return models.Payment{}, apperr.Validation("Geçersiz ödeme yöntemi: %s (%s)", method, models.PaymentMethodNames())
	}

	var p models.Payment
	err := db.Transaction(func(tx *gorm.DB) error {
		shift, err := OpenShiftFor(tx, actor.UserID)
		if err != nil {
			return err
		}
		if shift == nil {
			return apperr.Conflict("Ödeme almak için açık vardiyanız olmalı")
		}

		var o models.Order
		if err := tx.First(&o, "id = ?", orderID).Error; err != nil {
			return apperr.NotFoundOr(err, "Komanda bulunamadı")
		}
		if o.Status != models.OrderDelivered {
			return apperr.Conflict("Sadece teslim edilmiş komandalar ödenebilir (durum: %s)", o.Status)
		}

		var paid int64
		if err := tx.Model(&models.Payment{}).Where("order_id = ?", o.ID).Count(&paid).Error; err != nil {
			return err
		}
		if paid > 0 {
			return apperr.Conflict("Komanda #%d zaten ödenmiş", o.ID)
		}

		total := o.Total.Round(2)
		change := decimal.Zero
		switch method {
		case models.PaymentCash:
			if received.LessThan(total) {
				return apperr.Validation("Alınan tutar (%s) toplamdan (%s) az olamaz", received.StringFixed(2), total.StringFixed(2))
			}
			received = received.Round(2)
			change = received.Sub(total)
		case models.PaymentCard, models.PaymentTransfer:
			received = total
		}

		p = models.Payment{
			OrderID:    o.ID,
			ShiftID:    shift.ID,
			Method:     method,
			Amount:     total,
			Received:   received,
			Change:     change,
			TicketCode: uuid.NewString(),
			PaidAt:     time.Now(),
		}
		if err := tx.Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("Komanda #%d zaten ödenmiş", o.ID)
			}
			return err
		}

		if err := tables.SetStatusByID(tx, o.TableID, models.TableCleaning); err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "payment",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Komanda #%d ödendi: %s %s", o.ID, total.StringFixed(2), method),
			After: map[string]any{
				"order_id": o.ID,
				"shift_id": shift.ID,
				"method":   method,
				"amount":   total.StringFixed(2),
				"received": received.StringFixed(2),
				"change":   change.StringFixed(2),
			},
		})
	})
	return p, err
}

// GetTicket ödeme fişi için ödeme, komanda ve kasiyer bilgisini toplar
func GetTicket(db *gorm.DB, paymentID uint) (Ticket, error) {
	var t Ticket
	if err := db.First(&t.Payment, "id = ?", paymentID).Error; err != nil {
		return t, apperr.NotFoundOr(err, "Ödeme bulunamadı")
	}
	if err := db.
		Preload("Table").
		Preload("Waiter").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		First(&t.Order, "id = ?", t.Payment.OrderID).Error; err != nil {
		return t, err
	}

	var shift models.Shift
	if err := db.Preload("User").First(&shift, "id = ?", t.Payment.ShiftID).Error; err != nil {
		return t, err
	}
	t.Cashier = shift.User
	return t, nil
}

// History: admin tüm vardiyaları, kasiyer sadece kendi vardiyalarını görür
func History(db *gorm.DB, actor auth.Actor, page, pageSize int) (HistoryResult, error) {
	var res HistoryResult
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	scope := func(tx *gorm.DB) *gorm.DB {
		if actor.Role != models.RoleAdmin {
			return tx.Where("user_id = ?", actor.UserID)
		}
		return tx
	}

	if err := db.Model(&models.Shift{}).Scopes(scope).Count(&res.Total).Error; err != nil {
		return res, err
	}
	err := db.Scopes(scope).
		Preload("User").
		Order("opened_at desc, id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&res.Shifts).Error

	res.Page = page
	res.Pages = int((res.Total + int64(pageSize) - 1) / int64(pageSize))
	return res, err
}

// Report: vardiya satışları ve kapanmışsa mutabakat.
// beklenen nakit = açılış kasası + nakit satışlar, fark = kapanış kasası - beklenen nakit
func Report(db *gorm.DB, actor auth.Actor, shiftID uint) (ShiftReport, error) {
	var r ShiftReport
	if err := db.Preload("User").First(&r.Shift, "id = ?", shiftID).Error; err != nil {
		return r, apperr.NotFoundOr(err, "Vardiya bulunamadı")
	}
	if actor.Role != models.RoleAdmin && r.Shift.UserID != actor.UserID {
		return r, apperr.Forbidden("Bu vardiyayı görme yetkiniz yok")
	}

	if err := db.Where("shift_id = ?", r.Shift.ID).Order("paid_at asc, id asc").Find(&r.Payments).Error; err != nil {
		return r, err
	}
	r.Sales = sumPayments(r.Payments)

	if r.Shift.Status == models.ShiftClosed && r.Shift.ClosingFloat.Valid {
		expected := r.Shift.OpeningFloat.Add(r.Sales.Cash)
		diff := r.Shift.ClosingFloat.Decimal.Sub(expected)
		r.ExpectedCash = &expected
		r.Discrepancy = &diff
	}
	return r, nil
}

// GetDashboard: açık vardiya, vardiyanın anlık satışları ve ödeme bekleyenler
func GetDashboard(db *gorm.DB, actor auth.Actor) (Dashboard, error) {
	var d Dashboard
	shift, err := OpenShiftFor(db, actor.UserID)
	if err != nil {
		return d, err
	}
	d.OpenShift = shift

	if shift != nil {
		var payments []models.Payment
		if err := db.Where("shift_id = ?", shift.ID).Find(&payments).Error; err != nil {
			return d, err
		}
		d.Sales = sumPayments(payments)
	}

	d.PendingPayments, err = PendingPayments(db)
	return d, err
}
