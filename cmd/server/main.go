package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kinternationals/estimator/internal/config"
	"github.com/kinternationals/estimator/internal/db"
	"github.com/kinternationals/estimator/internal/migrations"
	"github.com/kinternationals/estimator/internal/seed"
	"github.com/kinternationals/estimator/internal/service"
	"github.com/kinternationals/estimator/internal/store"
	"github.com/kinternationals/estimator/web"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	auth        *authService
	store       *store.Store
	customers   *service.Customers
	catalog     *service.Catalog
	estimates   *service.Estimates
	companyName string
}

func newServer(cfg config.Config, database *sql.DB) *server {
	st := store.New(database)
	return &server{
		auth:        newAuthService(st, cfg.SessionSecret, !cfg.IsDev()),
		store:       st,
		customers:   service.NewCustomers(st),
		catalog:     service.NewCatalog(st, cfg.DefaultTaxRate),
		estimates:   service.NewEstimates(st, cfg.DefaultTaxRate),
		companyName: cfg.CompanyName,
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "estimator",
		Short:        "Estimate pricing for kitchen cabinetry",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the web application",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert the admin user and the starter catalog",
			RunE:  runSeed,
		},
	)
	return root
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(ctx, database); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}
	version, err := migrations.Version(ctx, database)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Printf("database at schema version %d", version)
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := seed.Run(ctx, database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		return err
	}
	log.Printf("seed finished: %d inserted", stats.Inserts)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if cfg.SessionSecret == "" && !cfg.IsDev() {
		return errors.New("SESSION_SECRET is required outside development")
	}
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(ctx, database); err != nil {
			return fmt.Errorf("run database migrations: %w", err)
		}
		stats, err := seed.Run(ctx, database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
		if err != nil {
			return err
		}
		if stats.Inserts > 0 {
			log.Printf("seeded %d rows", stats.Inserts)
		}
	}

	srv := newServer(cfg, database)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Print("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *server) routes() http.Handler {
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		log.Fatalf("static assets: %v", err)
	}

	r := chi.NewRouter()
	r.Use(s.authMiddleware)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Route("/customers", func(r chi.Router) {
		r.Get("/", s.handleCustomersList)
		r.Get("/new", s.handleCustomerNew)
		r.Post("/", s.handleCustomerCreate)
		r.Get("/{id}", s.handleCustomerDetail)
		r.Get("/{id}/edit", s.handleCustomerEdit)
		r.Post("/{id}", s.handleCustomerUpdate)
		r.Post("/{id}/delete", s.handleCustomerDelete)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", s.handleCategoriesList)
		r.Get("/new", s.handleCategoryNew)
		r.Post("/", s.handleCategoryCreate)
		r.Get("/{id}/edit", s.handleCategoryEdit)
		r.Post("/{id}", s.handleCategoryUpdate)
		r.Post("/{id}/delete", s.handleCategoryDelete)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleProductsList)
		r.Get("/new", s.handleProductNew)
		r.Post("/", s.handleProductCreate)
		r.Get("/{id}", s.handleProductDetail)
		r.Get("/{id}/edit", s.handleProductEdit)
		r.Post("/{id}", s.handleProductUpdate)
		r.Post("/{id}/delete", s.handleProductDelete)
	})

	r.Route("/estimates", func(r chi.Router) {
		r.Get("/", s.handleEstimatesList)
		r.Get("/export.xlsx", s.handleEstimatesExport)
		r.Get("/new", s.handleEstimateNew)
		r.Post("/", s.handleEstimateCreate)
		r.Post("/preview", s.handleEstimatePreview)
		r.Get("/{id}", s.handleEstimateDetail)
		r.Get("/{id}/edit", s.handleEstimateEdit)
		r.Get("/{id}/pdf", s.handleEstimatePDF)
		r.Post("/{id}", s.handleEstimateUpdate)
		r.Post("/{id}/status", s.handleEstimateStatus)
		r.Post("/{id}/delete", s.handleEstimateDelete)
	})

	return r
}
