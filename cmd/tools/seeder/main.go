package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/noah-isme/printquote/internal/catalog"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	deactivate := flag.String("deactivate", "", "comma separated material names to hide")
	flag.Parse()

	dbPath := os.Getenv("CATALOG_DB_PATH")
	if dbPath == "" {
		log.Fatal("CATALOG_DB_PATH is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := catalog.OpenDB(ctx, dbPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer db.Close()

	if err := catalog.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate catalog: %v", err)
	}

	store := catalog.Store{DB: db}
	for _, m := range catalog.Defaults().List() {
		entry := catalog.Entry{Name: m.Name, DensityGPerCm3: m.DensityGPerCm3, PricePerKg: m.PricePerKg}
		if err := store.Upsert(ctx, entry); err != nil {
			log.Fatalf("Failed to seed %s: %v", m.Name, err)
		}
		log.Printf("Seeded %s (%.2f g/cm3, %.2f/kg)", m.Name, m.DensityGPerCm3, m.PricePerKg)
	}

	for _, name := range strings.Split(*deactivate, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := store.Deactivate(ctx, name); err != nil {
			log.Fatalf("Failed to deactivate %s: %v", name, err)
		}
		log.Printf("Deactivated %s", name)
	}

	log.Println("Seeding completed successfully!")
}
