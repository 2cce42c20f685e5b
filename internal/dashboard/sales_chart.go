package dashboard

import (
	"sort"
	"time"

	"restoran-pos/internal/database"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesChartPoint struct {
	Label    string `json:"label"` // tarih / hafta başlangıcı / ay başlangıcı
	Cash     string `json:"cash"`
	Card     string `json:"card"`
	Transfer string `json:"transfer"`
	Total    string `json:"total"`
}

type SalesChartGrandTotals struct {
	Cash     string `json:"cash"`
	Card     string `json:"card"`
	Transfer string `json:"transfer"`
	Total    string `json:"total"`
}

type SalesChartResponse struct {
	Success     bool                  `json:"success"`
	Message     string                `json:"message"`
	Period      string                `json:"period"` // daily | weekly | monthly
	From        string                `json:"from"`
	To          string                `json:"to"`
	Points      []SalesChartPoint     `json:"points"`
	GrandTotals SalesChartGrandTotals `json:"grand_totals"`
}

type bucketAgg struct {
	Bucket   time.Time
	Cash     decimal.Decimal
	Card     decimal.Decimal
	Transfer decimal.Decimal
}

func (b bucketAgg) total() decimal.Decimal {
	return b.Cash.Add(b.Card).Add(b.Transfer)
}

// chartRange: period ve count'a göre [start, end) aralığı
func chartRange(period string, count int, now time.Time) (string, time.Time, time.Time) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch period {
	case "weekly":
		thisWeek := bucketStart("weekly", today)
		return period, thisWeek.AddDate(0, 0, -7*(count-1)), thisWeek.AddDate(0, 0, 7)
	case "monthly":
		thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return period, thisMonth.AddDate(0, -(count - 1), 0), thisMonth.AddDate(0, 1, 0)
	default:
		return "daily", today.AddDate(0, 0, -(count - 1)), today.AddDate(0, 0, 1)
	}
}

// bucketStart: ödemenin düştüğü kovanın başlangıcı (hafta pazartesi başlar)
func bucketStart(period string, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch period {
	case "weekly":
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return day
}

// BuildSalesChart ödemeleri period kovalarına ve yönteme göre toplar.
// Gruplama Go tarafında yapılır, böylece postgres ve sqlite aynı sonucu verir.
func BuildSalesChart(db *gorm.DB, period string, count int, now time.Time) (SalesChartResponse, error) {
	period, start, end := chartRange(period, count, now)

	var payments []models.Payment
	if err := db.Where("paid_at >= ? AND paid_at < ?", start, end).
		Order("paid_at asc").
		Find(&payments).Error; err != nil {
		return SalesChartResponse{}, err
	}

	buckets := make(map[time.Time]*bucketAgg)
	for _, p := range payments {
		key := bucketStart(period, p.PaidAt.In(now.Location()))
		agg, ok := buckets[key]
		if !ok {
			agg = &bucketAgg{Bucket: key}
			buckets[key] = agg
		}

		switch p.Method {
		case models.PaymentCash:
			agg.Cash = agg.Cash.Add(p.Amount)
		case models.PaymentCard:
			agg.Card = agg.Card.Add(p.Amount)
		case models.PaymentTransfer:
			agg.Transfer = agg.Transfer.Add(p.Amount)
		}
	}

	ordered := make([]bucketAgg, 0, len(buckets))
	for _, v := range buckets {
		ordered = append(ordered, *v)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Bucket.Before(ordered[j].Bucket)
	})

	points := make([]SalesChartPoint, 0, len(ordered))
	var grand bucketAgg
	for _, b := range ordered {
		points = append(points, SalesChartPoint{
			Label:    b.Bucket.Format("2006-01-02"),
			Cash:     b.Cash.StringFixed(2),
			Card:     b.Card.StringFixed(2),
			Transfer: b.Transfer.StringFixed(2),
			Total:    b.total().StringFixed(2),
		})
		grand.Cash = grand.Cash.Add(b.Cash)
		grand.Card = grand.Card.Add(b.Card)
		grand.Transfer = grand.Transfer.Add(b.Transfer)
	}

	return SalesChartResponse{
		Success: true,
		Period:  period,
		From:    start.Format("2006-01-02"),
		To:      end.AddDate(0, 0, -1).Format("2006-01-02"),
		Points:  points,
		GrandTotals: SalesChartGrandTotals{
			Cash:     grand.Cash.StringFixed(2),
			Card:     grand.Card.StringFixed(2),
			Transfer: grand.Transfer.StringFixed(2),
			Total:    grand.total().StringFixed(2),
		},
	}, nil
}

// GET /api/dashboard/sales-chart?period=daily&count=7
func SalesChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily") // daily | weekly | monthly
		count := c.QueryInt("count", 0)

		if count == 0 {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 12
			default:
				count = 7
			}
		}
		if count < 0 || count > 366 {
			return fiber.NewError(fiber.StatusBadRequest, "count geçersiz")
		}

		resp, err := BuildSalesChart(database.DB, period, count, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}
		return c.JSON(resp)
	}
}
