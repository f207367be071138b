// Command seed resets the database and loads a small starter catalog plus
// a default admin account. Intended for local development only.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/elango738/Library-Management-System/library"
)

type seedBook struct {
	title, author, isbn, publisher string
	year, copies                   int
}

var starterCatalog = []seedBook{
	{"The Great Gatsby", "F. Scott Fitzgerald", "9780743273565", "Scribner", 1925, 5},
	{"Sapiens", "Yuval Noah Harari", "9780062316097", "Harper", 2015, 3},
	{"A Brief History of Time", "Stephen Hawking", "9780553380163", "Bantam", 1988, 2},
	{"1984", "George Orwell", "9780451524935", "Signet Classics", 1949, 4},
	{"Animal Farm", "George Orwell", "9780452284241", "Plume", 1945, 4},
	{"The Art of War", "Sun Tzu", "9781590302255", "Shambhala", 2005, 1},
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	cfg := library.LoadConfig()

	// Clean up any existing database files
	fmt.Println("Cleaning up existing database files...")
	dbFiles := []string{cfg.DBPath, cfg.DBPath + "-shm", cfg.DBPath + "-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}
	fmt.Println("Database cleanup complete.")

	mgr, err := library.NewManager(cfg, slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	// Default admin; change the password after first login.
	admin, err := mgr.CreateAdmin("admin", "admin123")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created admin %q (ID: %d)\n", admin.Username, admin.ID)

	successCount := 0
	errorCount := 0
	for _, sb := range starterCatalog {
		fmt.Printf("Seeding: %s by %s... ", sb.title, sb.author)
		year := sb.year
		id, err := mgr.DB().AddBook(&library.Book{
			Title:           sb.title,
			Author:          sb.author,
			ISBN:            sb.isbn,
			Publisher:       sb.publisher,
			Year:            &year,
			CopiesTotal:     sb.copies,
			CopiesAvailable: sb.copies,
		})
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", id)
		successCount++
	}

	fmt.Printf("\nSeed complete!\n")
	fmt.Printf("Books: %d, errors: %d\n", successCount, errorCount)
}
