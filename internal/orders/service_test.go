package orders

import (
	"testing"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/database/dbtest"
	"restoran-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	admin   auth.Actor
	waiter  auth.Actor
	kitchen auth.Actor
	cashier auth.Actor
	table   models.Table
	burger  models.Product
	soda    models.Product
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.New(t)
	cat := dbtest.Category(t, db, "Ana Yemek")
	return fixture{
		db:      db,
		admin:   auth.ActorFromUser(dbtest.User(t, db, "admin", models.RoleAdmin)),
		waiter:  auth.ActorFromUser(dbtest.User(t, db, "garson", models.RoleWaiter)),
		kitchen: auth.ActorFromUser(dbtest.User(t, db, "mutfak", models.RoleKitchen)),
		cashier: auth.ActorFromUser(dbtest.User(t, db, "kasa", models.RoleCashier)),
		table:   dbtest.Table(t, db, 5),
		burger:  dbtest.Product(t, db, cat.ID, "Burger", "10.00", 20),
		soda:    dbtest.Product(t, db, cat.ID, "Soda", "5.00", 2),
	}
}

func tableStatus(t *testing.T, db *gorm.DB, id uint) models.TableStatus {
	t.Helper()
	var tbl models.Table
	if err := db.First(&tbl, id).Error; err != nil {
		t.Fatalf("masa okunamadı: %v", err)
	}
	return tbl.Status
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.OrderPending, models.OrderInPreparation, true},
		{models.OrderPending, models.OrderReady, false},
		{models.OrderPending, models.OrderCancelled, true},
		{models.OrderInPreparation, models.OrderReady, true},
		{models.OrderReady, models.OrderDelivered, true},
		{models.OrderReady, models.OrderCancelled, true},
		{models.OrderDelivered, models.OrderCancelled, false},
		{models.OrderCancelled, models.OrderPending, false},
		{models.OrderDelivered, models.OrderReady, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestRoleMayTarget(t *testing.T) {
	tests := []struct {
		role models.UserRole
		to   models.OrderStatus
		want bool
	}{
		{models.RoleKitchen, models.OrderInPreparation, true},
		{models.RoleKitchen, models.OrderReady, true},
		{models.RoleKitchen, models.OrderDelivered, false},
		{models.RoleKitchen, models.OrderCancelled, false},
		{models.RoleWaiter, models.OrderDelivered, true},
		{models.RoleWaiter, models.OrderCancelled, true},
		{models.RoleWaiter, models.OrderReady, false},
		{models.RoleAdmin, models.OrderReady, true},
		{models.RoleAdmin, models.OrderCancelled, true},
		{models.RoleCashier, models.OrderDelivered, false},
	}
	for _, tt := range tests {
		if got := RoleMayTarget(tt.role, tt.to); got != tt.want {
			t.Errorf("RoleMayTarget(%s, %s) = %v, want %v", tt.role, tt.to, got, tt.want)
		}
	}

	// her rol switch'te ele alınmalı
	for _, r := range models.Roles {
		if r != models.RoleCashier && len(AllowedTargets(r)) == 0 {
			t.Errorf("%s rolü için geçiş tanımlı değil", r)
		}
	}
}

func TestCreate_SingleActiveOrderPerTable(t *testing.T) {
	f := newFixture(t)

	o, err := Create(f.db, f.waiter, f.table.ID, "cam kenarı")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Status != models.OrderPending || o.WaiterID != f.waiter.UserID {
		t.Fatalf("beklenmeyen komanda: %+v", o)
	}
	if got := tableStatus(t, f.db, f.table.ID); got != models.TableOccupied {
		t.Fatalf("masa occupied olmalı, gelen %s", got)
	}

	if _, err := Create(f.db, f.admin, f.table.ID, ""); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("ikinci açık komanda için conflict bekleniyordu, gelen %v", err)
	}

	var count int64
	f.db.Model(&models.Order{}).Where("table_id = ?", f.table.ID).Count(&count)
	if count != 1 {
		t.Fatalf("1 komanda bekleniyordu, gelen %d", count)
	}

	if _, err := Create(f.db, f.kitchen, f.table.ID, ""); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("mutfak komanda açamamalı, gelen %v", err)
	}
}

func TestCreate_UniqueIndexBacksPreCheck(t *testing.T) {
	f := newFixture(t)

	first := models.Order{TableID: f.table.ID, WaiterID: f.waiter.UserID, Status: models.OrderReady}
	if err := f.db.Create(&first).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	second := models.Order{TableID: f.table.ID, WaiterID: f.waiter.UserID, Status: models.OrderPending}
	if err := f.db.Create(&second).Error; err == nil {
		t.Fatalf("index ikinci açık komandayı reddetmeli")
	}

	closed := models.Order{TableID: f.table.ID, WaiterID: f.waiter.UserID, Status: models.OrderDelivered}
	if err := f.db.Create(&closed).Error; err != nil {
		t.Fatalf("kapalı komanda index'e takılmamalı: %v", err)
	}
}

func TestItems_TotalFollowsSum(t *testing.T) {
	f := newFixture(t)
	o, err := Create(f.db, f.waiter, f.table.ID, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	o, err = AddItem(f.db, f.waiter, o.ID, f.burger.ID, 2, "az pişmiş")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	o, err = AddItem(f.db, f.waiter, o.ID, f.soda.ID, 1, "")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if !o.Total.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("toplam 25 bekleniyordu, gelen %s", o.Total)
	}
	if !o.Total.Equal(models.SumItems(o.Items)) {
		t.Fatalf("toplam kalemlerin toplamına eşit olmalı")
	}

	// fiyat değişikliği mevcut kalemleri etkilemez
	f.db.Model(&models.Product{}).Where("id = ?", f.burger.ID).Update("price", decimal.RequireFromString("12"))
	o, err = Get(f.db, o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !o.Items[0].UnitPrice.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("birim fiyat sabit kalmalı, gelen %s", o.Items[0].UnitPrice)
	}

	var burger models.Product
	f.db.First(&burger, f.burger.ID)
	if burger.Stock != 18 {
		t.Fatalf("stok 18 bekleniyordu, gelen %d", burger.Stock)
	}

	o, err = RemoveItem(f.db, f.waiter, o.Items[0].ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if !o.Total.Equal(decimal.RequireFromString("5")) || len(o.Items) != 1 {
		t.Fatalf("toplam 5 ve tek kalem bekleniyordu, gelen %s / %d", o.Total, len(o.Items))
	}
	f.db.First(&burger, f.burger.ID)
	if burger.Stock != 20 {
		t.Fatalf("stok geri eklenmeli, gelen %d", burger.Stock)
	}
}

func TestAddItem_Rejections(t *testing.T) {
	f := newFixture(t)
	o, err := Create(f.db, f.waiter, f.table.ID, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	other := auth.ActorFromUser(dbtest.User(t, f.db, "garson2", models.RoleWaiter))

	f.db.Model(&models.Product{}).Where("id = ?", f.soda.ID).Update("available", false)

	tests := []struct {
		name      string
		actor     auth.Actor
		productID uint
		qty       int
		kind      apperr.Kind
	}{
		{"zero quantity", f.waiter, f.burger.ID, 0, apperr.KindValidation},
		{"unknown product", f.waiter, 9999, 1, apperr.KindNotFound},
		{"unavailable product", f.waiter, f.soda.ID, 1, apperr.KindConflict},
		{"insufficient stock", f.waiter, f.burger.ID, 21, apperr.KindConflict},
		{"other waiter", other, f.burger.ID, 1, apperr.KindForbidden},
		{"kitchen", f.kitchen, f.burger.ID, 1, apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AddItem(f.db, tt.actor, o.ID, tt.productID, tt.qty, "")
			if !apperr.Is(err, tt.kind) {
				t.Fatalf("beklenen hata türü %v, gelen %v", tt.kind, err)
			}
		})
	}

	var burger models.Product
	f.db.First(&burger, f.burger.ID)
	if burger.Stock != 20 {
		t.Fatalf("reddedilen eklemeler stoğu değiştirmemeli, gelen %d", burger.Stock)
	}
}

func TestChangeStatus_Flow(t *testing.T) {
	f := newFixture(t)
	o, err := Create(f.db, f.waiter, f.table.ID, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := ChangeStatus(f.db, f.waiter, o.ID, "served"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("geçersiz hedef validation olmalı, gelen %v", err)
	}
	if _, err := ChangeStatus(f.db, f.waiter, o.ID, models.OrderReady); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("garson ready yapamamalı, gelen %v", err)
	}
	if _, err := ChangeStatus(f.db, f.cashier, o.ID, models.OrderDelivered); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("kasiyer durum değiştirememeli, gelen %v", err)
	}
	if _, err := ChangeStatus(f.db, f.kitchen, o.ID, models.OrderReady); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("pending -> ready conflict olmalı, gelen %v", err)
	}

	steps := []struct {
		actor auth.Actor
		to    models.OrderStatus
	}{
		{f.kitchen, models.OrderInPreparation},
		{f.kitchen, models.OrderReady},
		{f.waiter, models.OrderDelivered},
	}
	for _, s := range steps {
		o, err = ChangeStatus(f.db, s.actor, o.ID, s.to)
		if err != nil {
			t.Fatalf("%s: %v", s.to, err)
		}
		if o.Status != s.to {
			t.Fatalf("durum %s bekleniyordu, gelen %s", s.to, o.Status)
		}
	}

	if got := tableStatus(t, f.db, f.table.ID); got != models.TableCleaning {
		t.Fatalf("masa cleaning olmalı, gelen %s", got)
	}

	if _, err := ChangeStatus(f.db, f.admin, o.ID, models.OrderCancelled); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("teslim edilmiş komanda iptal edilmemeli, gelen %v", err)
	}
	if _, err := AddItem(f.db, f.waiter, o.ID, f.burger.ID, 1, ""); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("teslim edilmiş komanda düzenlenmemeli, gelen %v", err)
	}

	var logs int64
	f.db.Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", "order", o.ID, models.AuditActionStatus).
		Count(&logs)
	if logs != 3 {
		t.Fatalf("3 durum audit kaydı bekleniyordu, gelen %d", logs)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	o, err := Create(f.db, f.waiter, f.table.ID, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := AddItem(f.db, f.waiter, o.ID, f.burger.ID, 3, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	other := auth.ActorFromUser(dbtest.User(t, f.db, "garson2", models.RoleWaiter))
	if _, err := Cancel(f.db, other, o.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("başka garson iptal edememeli, gelen %v", err)
	}

	o, err = Cancel(f.db, f.waiter, o.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if o.Status != models.OrderCancelled {
		t.Fatalf("cancelled bekleniyordu, gelen %s", o.Status)
	}
	if got := tableStatus(t, f.db, f.table.ID); got != models.TableCleaning {
		t.Fatalf("masa cleaning olmalı, gelen %s", got)
	}
	if _, err := Cancel(f.db, f.waiter, o.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("ikinci iptal conflict olmalı, gelen %v", err)
	}

	// iptal stoğu geri almaz
	var burger models.Product
	f.db.First(&burger, f.burger.ID)
	if burger.Stock != 17 {
		t.Fatalf("stok 17 kalmalı, gelen %d", burger.Stock)
	}

	// masa yeniden komanda alabilir
	if _, err := Create(f.db, f.waiter, f.table.ID, ""); err != nil {
		t.Fatalf("iptal sonrası yeni komanda açılabilmeli: %v", err)
	}
}

func TestList_ByRole(t *testing.T) {
	f := newFixture(t)
	t2 := dbtest.Table(t, f.db, 6)
	t3 := dbtest.Table(t, f.db, 7)

	o1, _ := Create(f.db, f.waiter, f.table.ID, "")
	o2, _ := Create(f.db, f.admin, t2.ID, "")
	o3, _ := Create(f.db, f.waiter, t3.ID, "")
	if _, err := ChangeStatus(f.db, f.kitchen, o2.ID, models.OrderInPreparation); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if _, err := Cancel(f.db, f.waiter, o3.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	kitchen, err := List(f.db, f.kitchen, ListFilter{})
	if err != nil {
		t.Fatalf("List kitchen: %v", err)
	}
	if len(kitchen.Orders) != 2 || kitchen.Orders[0].ID != o1.ID {
		t.Fatalf("mutfak 2 aktif komanda görmeli (eskiden yeniye), gelen %d", len(kitchen.Orders))
	}

	waiter, err := List(f.db, f.waiter, ListFilter{})
	if err != nil {
		t.Fatalf("List waiter: %v", err)
	}
	if len(waiter.Orders) != 2 {
		t.Fatalf("garson kendi 2 komandasını görmeli, gelen %d", len(waiter.Orders))
	}

	paged, err := List(f.db, f.cashier, ListFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("List cashier: %v", err)
	}
	if paged.Total != 3 || len(paged.Orders) != 2 || paged.Pages != 2 {
		t.Fatalf("sayfalama hatalı: total=%d len=%d pages=%d", paged.Total, len(paged.Orders), paged.Pages)
	}

	cancelled, err := List(f.db, f.admin, ListFilter{Status: models.OrderCancelled})
	if err != nil {
		t.Fatalf("List admin: %v", err)
	}
	if cancelled.Total != 1 || cancelled.Orders[0].ID != o3.ID {
		t.Fatalf("tek iptal komanda bekleniyordu")
	}

	if _, err := List(f.db, f.admin, ListFilter{Status: "lost"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("geçersiz filtre validation olmalı, gelen %v", err)
	}
}

func TestGetFor_WaiterSeesOnlyOwnOrders(t *testing.T) {
	f := newFixture(t)
	other := auth.ActorFromUser(dbtest.User(t, f.db, "garson2", models.RoleWaiter))

	o, err := Create(f.db, f.waiter, f.table.ID, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name  string
		actor auth.Actor
		want  apperr.Kind
	}{
		{"owner", f.waiter, 0},
		{"other waiter", other, apperr.KindForbidden},
		{"admin", f.admin, 0},
		{"kitchen", f.kitchen, 0},
		{"cashier", f.cashier, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetFor(f.db, tt.actor, o.ID)
			if tt.want == 0 {
				if err != nil || got.ID != o.ID {
					t.Fatalf("GetFor: %v", err)
				}
				return
			}
			if !apperr.Is(err, tt.want) {
				t.Fatalf("beklenen hata türü %v, gelen %v", tt.want, err)
			}
		})
	}
}
