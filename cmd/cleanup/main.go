package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// One-off maintenance: purge expired PIX transactions past the 7-day
// retention window without booting the full application.
func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			envOr("DB_HOST", "localhost"),
			envOr("DB_PORT", "5432"),
			envOr("DB_USER", "postgres"),
			os.Getenv("DB_PASSWORD"),
			envOr("DB_NAME", "investment_platform"),
		)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	res, err := db.Exec(`
		DELETE FROM transactions
		WHERE status = 'expired'
		  AND processed_at < NOW() - INTERVAL '7 days'
	`)
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}

	rows, _ := res.RowsAffected()
	log.Printf("Deleted %d expired transactions", rows)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
