package main

import (
	"context"
	"log"

	"ai-tunemate-be/internal/bootstrap"
	"ai-tunemate-be/internal/config"
	"ai-tunemate-be/internal/server"
	"ai-tunemate-be/internal/tracer"
	"ai-tunemate-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (optional: analytics only)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Printf("[WARN] Unable to connect to database: %v. Continuing without analytics", err)
		} else {
			gormDB = db
		}
	} else {
		log.Println("[INFO] DB_CONNECTION_STRING not set, analytics disabled")
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Relay Consumer Service...")
		if err := container.RelayConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Relay Consumer Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
