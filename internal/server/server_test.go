package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"restoran-pos/internal/config"
	"restoran-pos/internal/database/dbtest"
	"restoran-pos/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type apiClient struct {
	t   *testing.T
	app *fiber.App
}

func newTestApp(t *testing.T) (*apiClient, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)
	cfg := &config.Config{
		DBDriver:    "sqlite",
		JWTSecret:   strings.Repeat("k", 40),
		JWTTTL:      time.Hour,
		CORSOrigins: "http://localhost:5173",
		PageSize:    20,
	}
	return &apiClient{t: t, app: New(cfg)}, db
}

func (a *apiClient) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("body encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (a *apiClient) login(username string) string {
	a.t.Helper()
	status, out := a.do("POST", "/api/auth/login", "", map[string]any{
		"username": username,
		"password": "secret123",
	})
	if status != fiber.StatusOK {
		a.t.Fatalf("login %s: %d %v", username, status, out)
	}
	return out["token"].(string)
}

func field(t *testing.T, m map[string]any, path ...string) any {
	t.Helper()
	var cur any = m
	for _, p := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			t.Fatalf("%v yolunda nesne yok: %v", path, m)
		}
		cur = obj[p]
	}
	return cur
}

func idOf(t *testing.T, m map[string]any, key string) uint {
	t.Helper()
	v, ok := field(t, m, key, "id").(float64)
	if !ok {
		t.Fatalf("%s.id bulunamadı: %v", key, m)
	}
	return uint(v)
}

func TestScenario_TableToPayment(t *testing.T) {
	api, db := newTestApp(t)
	dbtest.User(t, db, "admin", models.RoleAdmin)
	dbtest.User(t, db, "garson", models.RoleWaiter)
	dbtest.User(t, db, "mutfak", models.RoleKitchen)
	dbtest.User(t, db, "kasa", models.RoleCashier)

	admin := api.login("admin")
	waiter := api.login("garson")
	kitchen := api.login("mutfak")
	cashier := api.login("kasa")

	status, out := api.do("POST", "/api/tables", admin, map[string]any{"number": 5, "capacity": 4, "location": "Salon"})
	if status != fiber.StatusCreated {
		t.Fatalf("masa oluşturulamadı: %d %v", status, out)
	}
	tableID := idOf(t, out, "table")

	status, out = api.do("POST", "/api/admin/categories", admin, map[string]any{"name": "Ana Yemek"})
	if status != fiber.StatusCreated {
		t.Fatalf("kategori oluşturulamadı: %d %v", status, out)
	}
	catID := idOf(t, out, "category")

	status, out = api.do("POST", "/api/admin/products", admin, map[string]any{
		"name": "Burger", "category_id": catID, "price": "10", "stock": 50,
	})
	if status != fiber.StatusCreated {
		t.Fatalf("ürün oluşturulamadı: %d %v", status, out)
	}
	burgerID := idOf(t, out, "product")

	status, out = api.do("POST", "/api/admin/products", admin, map[string]any{
		"name": "Soda", "category_id": catID, "price": 5, "stock": 50,
	})
	if status != fiber.StatusCreated {
		t.Fatalf("ürün oluşturulamadı: %d %v", status, out)
	}
	sodaID := idOf(t, out, "product")

	status, out = api.do("POST", "/api/orders", waiter, map[string]any{"table_id": tableID})
	if status != fiber.StatusCreated {
		t.Fatalf("komanda açılamadı: %d %v", status, out)
	}
	orderID := idOf(t, out, "order")

	status, out = api.do("POST", "/api/orders", waiter, map[string]any{"table_id": tableID})
	if status != fiber.StatusBadRequest || out["success"] != false {
		t.Fatalf("ikinci komanda 400 olmalı: %d %v", status, out)
	}

	itemsPath := fmt.Sprintf("/api/orders/%d/items", orderID)
	if status, out = api.do("POST", itemsPath, waiter, map[string]any{"product_id": burgerID, "quantity": 2}); status != fiber.StatusOK {
		t.Fatalf("kalem eklenemedi: %d %v", status, out)
	}
	if status, out = api.do("POST", itemsPath, waiter, map[string]any{"product_id": sodaID, "quantity": 1}); status != fiber.StatusOK {
		t.Fatalf("kalem eklenemedi: %d %v", status, out)
	}
	if total := field(t, out, "order", "total"); total != "25.00" {
		t.Fatalf("toplam 25.00 olmalı, gelen %v", total)
	}

	statusPath := fmt.Sprintf("/api/orders/%d/status", orderID)
	if status, out = api.do("POST", statusPath, kitchen, map[string]any{"status": "delivered"}); status != fiber.StatusForbidden {
		t.Fatalf("mutfak delivered yapamamalı: %d %v", status, out)
	}
	steps := []struct {
		token  string
		target string
	}{
		{kitchen, "in_preparation"},
		{kitchen, "ready"},
		{waiter, "delivered"},
	}
	for _, s := range steps {
		status, out = api.do("POST", statusPath, s.token, map[string]any{"status": s.target})
		if status != fiber.StatusOK {
			t.Fatalf("%s: %d %v", s.target, status, out)
		}
		if got := field(t, out, "order", "status"); got != s.target {
			t.Fatalf("durum %s olmalı, gelen %v", s.target, got)
		}
	}

	status, out = api.do("POST", "/api/cashier/payments", cashier, map[string]any{
		"order_id": orderID, "method": "cash", "received": "30",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("vardiyasız ödeme reddedilmeli: %d %v", status, out)
	}

	if status, out = api.do("POST", "/api/cashier/shifts/open", cashier, map[string]any{"opening_float": "100"}); status != fiber.StatusCreated {
		t.Fatalf("vardiya açılamadı: %d %v", status, out)
	}

	status, out = api.do("POST", "/api/cashier/shifts/close", cashier, map[string]any{"closing_float": "100"})
	if status != fiber.StatusBadRequest || out["unpaid_orders"] != float64(1) {
		t.Fatalf("ödenmemiş komanda varken kapanış reddedilmeli: %d %v", status, out)
	}

	status, out = api.do("POST", "/api/cashier/payments", cashier, map[string]any{
		"order_id": orderID, "method": "cash", "received": "30",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("ödeme alınamadı: %d %v", status, out)
	}
	if change := field(t, out, "payment", "change"); change != "5.00" {
		t.Fatalf("para üstü 5.00 olmalı, gelen %v", change)
	}

	status, out = api.do("GET", fmt.Sprintf("/api/tables/%d", tableID), waiter, nil)
	if status != fiber.StatusOK {
		t.Fatalf("masa alınamadı: %d %v", status, out)
	}
	if got := field(t, out, "table", "status"); got != "cleaning" {
		t.Fatalf("masa cleaning olmalı, gelen %v", got)
	}

	status, out = api.do("POST", "/api/cashier/shifts/close", cashier, map[string]any{"closing_float": "125"})
	if status != fiber.StatusOK {
		t.Fatalf("vardiya kapatılamadı: %d %v", status, out)
	}
	if got := field(t, out, "report", "discrepancy"); got != "0.00" {
		t.Fatalf("fark 0.00 olmalı, gelen %v", got)
	}
}

func TestDeleteCategoryWithProducts(t *testing.T) {
	api, db := newTestApp(t)
	dbtest.User(t, db, "admin", models.RoleAdmin)
	cat := dbtest.Category(t, db, "Tatlılar")
	dbtest.Product(t, db, cat.ID, "Baklava", "8.00", 10)
	admin := api.login("admin")

	status, out := api.do("DELETE", fmt.Sprintf("/api/admin/categories/%d", cat.ID), admin, nil)
	if status != fiber.StatusBadRequest || out["success"] != false {
		t.Fatalf("ürünlü kategori silinmemeli: %d %v", status, out)
	}

	var count int64
	db.Model(&models.Category{}).Where("id = ?", cat.ID).Count(&count)
	if count != 1 {
		t.Fatalf("kategori hâlâ var olmalı")
	}
}

func TestAuthAndRoleGates(t *testing.T) {
	api, db := newTestApp(t)
	dbtest.User(t, db, "garson", models.RoleWaiter)
	otherWaiter := dbtest.User(t, db, "garson2", models.RoleWaiter)
	dbtest.User(t, db, "mutfak", models.RoleKitchen)
	inactive := dbtest.User(t, db, "eski", models.RoleWaiter)
	waiter := api.login("garson")
	kitchen := api.login("mutfak")
	inactiveToken := api.login("eski")
	db.Model(&inactive).Update("active", false)

	tbl := dbtest.Table(t, db, 3)
	foreign := models.Order{TableID: tbl.ID, WaiterID: otherWaiter.ID, Status: models.OrderPending}
	if err := db.Create(&foreign).Error; err != nil {
		t.Fatalf("komanda oluşturulamadı: %v", err)
	}
	foreignPath := fmt.Sprintf("/api/orders/%d", foreign.ID)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"no token", "GET", "/api/tables", "", nil, fiber.StatusUnauthorized},
		{"bad token", "GET", "/api/tables", "garbage", nil, fiber.StatusUnauthorized},
		{"deactivated user", "GET", "/api/tables", inactiveToken, nil, fiber.StatusUnauthorized},
		{"waiter creates table", "POST", "/api/tables", waiter, map[string]any{"number": 1, "capacity": 2}, fiber.StatusForbidden},
		{"waiter opens shift", "POST", "/api/cashier/shifts/open", waiter, map[string]any{"opening_float": "0"}, fiber.StatusForbidden},
		{"waiter lists users", "GET", "/api/admin/users", waiter, nil, fiber.StatusForbidden},
		{"waiter lists tables", "GET", "/api/tables", waiter, nil, fiber.StatusOK},
		{"unknown order", "GET", "/api/orders/999", waiter, nil, fiber.StatusNotFound},
		{"waiter reads other waiter's order", "GET", foreignPath, waiter, nil, fiber.StatusForbidden},
		{"kitchen reads any order", "GET", foreignPath, kitchen, nil, fiber.StatusOK},
		{"kitchen lists tables", "GET", "/api/tables", kitchen, nil, fiber.StatusForbidden},
		{"kitchen opens floor map", "GET", "/api/tables/map", kitchen, nil, fiber.StatusForbidden},
		{"kitchen reads status snapshot", "GET", "/api/tables/status", kitchen, nil, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := api.do(tt.method, tt.path, tt.token, tt.body)
			if status != tt.want {
				t.Fatalf("%d bekleniyordu, gelen %d %v", tt.want, status, out)
			}
			if _, ok := out["success"]; !ok {
				t.Fatalf("yanıt zarfında success alanı yok: %v", out)
			}
		})
	}
}

func TestRegisterAdmin_OnlyOnce(t *testing.T) {
	api, _ := newTestApp(t)

	body := map[string]any{"username": "Patron", "name": "Patron", "password": "gizli123"}
	status, out := api.do("POST", "/api/auth/register-admin", "", body)
	if status != fiber.StatusCreated {
		t.Fatalf("ilk admin oluşturulamadı: %d %v", status, out)
	}
	if got := field(t, out, "user", "username"); got != "patron" {
		t.Fatalf("kullanıcı adı küçük harfe çevrilmeli, gelen %v", got)
	}

	body["username"] = "ikinci"
	if status, out = api.do("POST", "/api/auth/register-admin", "", body); status != fiber.StatusForbidden {
		t.Fatalf("ikinci admin reddedilmeli: %d %v", status, out)
	}

	status, out = api.do("POST", "/api/auth/login", "", map[string]any{"username": "patron", "password": "yanlis"})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("yanlış şifre 401 olmalı: %d %v", status, out)
	}
}

func TestRegisterAdmin_DuplicateUsername(t *testing.T) {
	api, db := newTestApp(t)
	dbtest.User(t, db, "patron", models.RoleWaiter)

	status, out := api.do("POST", "/api/auth/register-admin", "", map[string]any{
		"username": "patron", "password": "gizli123",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("kullanılan kullanıcı adı 400 olmalı: %d %v", status, out)
	}
}

func TestUpdateUser_KeepsAnActiveAdmin(t *testing.T) {
	api, db := newTestApp(t)
	boss := dbtest.User(t, db, "admin", models.RoleAdmin)
	admin := api.login("admin")
	selfPath := fmt.Sprintf("/api/admin/users/%d", boss.ID)

	status, out := api.do("PUT", selfPath, admin, map[string]any{"role": "waiter"})
	if status != fiber.StatusBadRequest {
		t.Fatalf("admin kendi rolünü düşürememeli: %d %v", status, out)
	}
	status, out = api.do("PUT", selfPath, admin, map[string]any{"active": false})
	if status != fiber.StatusBadRequest {
		t.Fatalf("admin kendini pasife alamamalı: %d %v", status, out)
	}

	status, out = api.do("POST", "/api/auth/register-admin", "", map[string]any{
		"username": "saldirgan", "password": "gizli123",
	})
	if status != fiber.StatusForbidden {
		t.Fatalf("admin varken register-admin kapalı olmalı: %d %v", status, out)
	}

	// İkinci admin varken biri düşürülebilir, sonuncusu düşürülemez
	second := dbtest.User(t, db, "admin2", models.RoleAdmin)
	status, out = api.do("PUT", fmt.Sprintf("/api/admin/users/%d", second.ID), admin, map[string]any{"role": "cashier"})
	if status != fiber.StatusOK {
		t.Fatalf("ikinci admin düşürülebilmeli: %d %v", status, out)
	}

	var stored models.User
	db.First(&stored, boss.ID)
	if stored.Role != models.RoleAdmin || !stored.Active {
		t.Fatalf("ilk admin değişmemeli: %+v", stored)
	}

	var admins int64
	db.Model(&models.User{}).Where("role = ? AND active = ?", models.RoleAdmin, true).Count(&admins)
	if admins != 1 {
		t.Fatalf("1 aktif admin bekleniyordu, gelen %d", admins)
	}
}
