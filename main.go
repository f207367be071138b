package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/elango738/Library-Management-System/library"
	"github.com/elango738/Library-Management-System/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:   "library",
		Short: "Library management service",
	}
	root.AddCommand(serveCmd(), createAdminCmd(), importCmd(), exportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openManager() (*library.Manager, library.Config, error) {
	cfg := library.LoadConfig()
	mgr, err := library.NewManager(cfg, slog.Default())
	if err != nil {
		return nil, cfg, fmt.Errorf("open database: %w", err)
	}
	return mgr, cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			if cfg.EnableScheduler {
				sched, err := library.NewScheduler(mgr, cfg.ScheduleHour, slog.Default())
				if err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
			}

			srv := &http.Server{
				Addr:    cfg.Addr,
				Handler: web.NewRouter(mgr),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				slog.Info("http server listening", "addr", cfg.Addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			slog.Info("http server stopped")
			return nil
		},
	}
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func createAdminCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "create-admin <username>",
		Short: "Create an admin account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			if password == "" {
				password, err = readPassword(fmt.Sprintf("Enter password for %s: ", args[0]))
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}
			user, err := mgr.CreateAdmin(args[0], password)
			if err != nil {
				return err
			}
			fmt.Printf("Created admin %q (ID: %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func importCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:       "import books|borrowers",
		Short:     "Bulk-import records from a CSV file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"books", "borrowers"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			var report *library.ImportReport
			switch args[0] {
			case "books":
				report, err = mgr.ImportBooks(f)
			case "borrowers":
				report, err = mgr.ImportBorrowers(f)
			default:
				return fmt.Errorf("unknown import target %q", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Printf("Import complete! Created: %d, updated: %d, errors: %d\n",
				report.Created, report.Updated, len(report.Errors))
			for _, re := range report.Errors {
				fmt.Printf("  %s\n", re)
			}
			if len(report.Errors) > 0 {
				return errors.New("some rows failed to import")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import")
	cmd.MarkFlagRequired("file")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "export books|borrowers",
		Short:     "Export records as CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"books", "borrowers"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager()
			if err != nil {
				return err
			}
			defer mgr.Close()

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch args[0] {
			case "books":
				return mgr.ExportBooks(w)
			case "borrowers":
				return mgr.ExportBorrowers(w)
			}
			return fmt.Errorf("unknown export target %q", args[0])
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to file instead of stdout")
	return cmd
}
