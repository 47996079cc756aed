package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"library-backend/pkg/api"
	"library-backend/pkg/auth"
	"library-backend/pkg/config"
	"library-backend/pkg/database"
	"library-backend/pkg/models"
	"library-backend/pkg/notifications"
	"library-backend/pkg/scheduler"
	"library-backend/pkg/services"
)

func main() {
	log.Println("Starting library backend...")

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}

	bookService := services.NewBookService(db)
	userService := services.NewUserService(db)
	loanService := services.NewLoanService(db, bookService)
	loanService.SetDefaultDuration(cfg.LoanDurationDays)
	statsService := services.NewStatsService(db)

	if cfg.SeedData {
		seedTestData(db, userService, bookService)
	}

	sender := notifications.NewBreakerSender(
		notifications.NewLogSender(logger),
		notifications.NewBreaker(5, 30*time.Second, 60*time.Second),
	)
	ledger := notifications.NewSentLedger()
	dispatcher := notifications.NewDispatcher(loanService, sender, ledger, logger)

	sched := scheduler.New(dispatcher, logger)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpirationHrs)
	server := api.NewServer(db, userService, bookService, loanService, statsService, dispatcher, tokens)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("Shutdown complete")
}

func seedTestData(db *gorm.DB, users *services.UserService, books *services.BookService) {
	var count int64
	db.Model(&models.User{}).Where("role = ?", models.RoleLibrarian).Count(&count)
	if count == 0 {
		_, err := users.Create("Admin", "admin@library.local", "admin123", models.RoleLibrarian)
		if err != nil {
			log.Printf("Failed to create admin user: %v", err)
		} else {
			log.Println("Created default librarian account: admin@library.local")
		}
	}

	seedBooks := []struct {
		title, author, isbn string
		copies              int
	}{
		{"The Go Programming Language", "Alan A. A. Donovan", "978-0134190440", 3},
		{"Clean Code", "Robert C. Martin", "978-0132350884", 2},
		{"Designing Data-Intensive Applications", "Martin Kleppmann", "978-1449373320", 2},
	}
	for _, b := range seedBooks {
		var existing models.Book
		if err := db.Where("title = ?", b.title).First(&existing).Error; err != nil {
			if _, err := books.Create(b.title, b.author, b.isbn, b.copies); err != nil {
				log.Printf("Failed to seed book %s: %v", b.title, err)
			}
		}
	}
	log.Println("Test data seeded")
}
