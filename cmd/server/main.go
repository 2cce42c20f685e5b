package main

import (
	"log"

	"restoran-pos/internal/config"
	"restoran-pos/internal/database"
	"restoran-pos/internal/server"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := server.New(cfg)

	log.Printf("Sunucu :%s portunda başlıyor", cfg.HTTPPort)
	log.Fatal(app.Listen(":" + cfg.HTTPPort))
}
