package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"RACE-backend/docs"
	"RACE-backend/internal/lab/approvaltoken"
	"RACE-backend/internal/lab/audit"
	"RACE-backend/internal/lab/inventory"
	"RACE-backend/internal/lab/reports"
	"RACE-backend/internal/lab/requests"
	"RACE-backend/internal/lab/store"
	"RACE-backend/internal/lab/store/memory"
	"RACE-backend/internal/lab/store/sqlstore"
	"RACE-backend/internal/platform/accesslog"
	"RACE-backend/internal/platform/auth"
	"RACE-backend/internal/platform/db"
	"RACE-backend/internal/platform/metrics"
)

// フロントのビルド出力を埋め込む
// "//go:embed public" ← これはビルドに必要なので消さないこと

// go:embed public
var embedded embed.FS

func main() {
	configPath := pflag.StringP("config", "c", "config/config.yaml", "path to config yaml")
	modeFlag := pflag.String("mode", "", "override mode (dev|release)")
	pflag.Parse()

	// 設定読み込み
	cfg, err := db.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *modeFlag != "" {
		cfg.Mode = *modeFlag
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s storage:%s\n", mode, cfg.Storage.Driver)

	if mode != "dev" && mode != "release" {
		fmt.Println("Usage: race-backend --config config/config.yaml --mode [dev|release]")
		return
	}
	if cfg.Auth.JWTSecret == "" || cfg.Approval.TokenSecret == "" {
		log.Fatal("[ERROR] auth.jwt_secret and approval.token_secret must be set (or LAB_JWT_SECRET / LAB_APPROVAL_SECRET)")
	}

	st, accounts, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	ctx := context.Background()
	authSvc := auth.NewService(accounts, auth.Config{
		Secret:        []byte(cfg.Auth.JWTSecret),
		TokenTTL:      cfg.Auth.TokenTTL,
		StudentDomain: cfg.Identity.StudentDomain,
	})
	if a := cfg.Auth.BootstrapAdmin; a.Email != "" {
		if err := authSvc.EnsureBootstrapAdmin(ctx, a.Email, a.Password, a.Name); err != nil {
			log.Fatal(err)
		}
	}

	rec := metrics.New()
	signer := approvaltoken.NewSigner([]byte(cfg.Approval.TokenSecret), cfg.Approval.LinkTTL)
	reqSvc := requests.NewService(st, signer, rec, requests.Config{
		MaxBorrowDays:   cfg.Lending.MaxBorrowDays,
		Location:        cfg.Location(),
		ApprovalBaseURL: cfg.Approval.BaseURL,
	})
	invSvc := inventory.NewService(st)
	auditSvc := audit.NewService(st)
	reportSvc := reports.NewService(reqSvc, auditSvc, cfg.Location())

	access, err := accesslog.New(accesslog.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, mode)
	if err != nil {
		log.Fatal(err)
	}
	defer access.Sync()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(accesslog.Middleware(access), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
		docs.SwaggerInfo.Host = "localhost" + cfg.Listen
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス / メトリクス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(rec.Handler()))

	// /api/v1
	public := r.Group("/api/v1")
	authed := r.Group("/api/v1", auth.RequireAuth(authSvc.Secret()))
	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	tech := authed.Group("", auth.RequireRole(auth.RoleTechnician))
	oversight := authed.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHOD))

	auth.RegisterRoutes(public, admin, authSvc)
	requests.RegisterRoutes(public, authed, reqSvc)
	inventory.RegisterRoutes(authed, tech, invSvc)
	audit.RegisterRoutes(oversight, auditSvc)
	reports.RegisterRoutes(oversight, reportSvc)

	if err := mountFrontend(r, embedded); err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// TLS設定
	certDir := "config/tls/release"
	if mode == "dev" {
		certDir = "config/tls/dev"
	}
	certFile := filepath.Join(certDir, cfg.Certificate.Cert)
	keyFile := filepath.Join(certDir, cfg.Certificate.Key)

	go func() {
		var err error
		if fileExists(certFile) && fileExists(keyFile) {
			log.Printf("[INFO] listening on https://0.0.0.0%s", cfg.Listen)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			// 証明書が無い環境（リバースプロキシ配下など）は平文で待ち受ける
			log.Printf("[WARN] certificate not found in %s, listening on http://0.0.0.0%s", certDir, cfg.Listen)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
}

// openStore は設定の driver に応じて業務ストアとアカウントストアを用意する
func openStore(cfg *db.Config) (store.Store, auth.AccountStore, func(), error) {
	var (
		conn *sql.DB
		err  error
	)
	switch cfg.Storage.Driver {
	case db.DriverMemory:
		log.Println("[WARN] in-memory storage: data is lost on restart")
		return memory.New(), auth.NewMemoryStore(), func() {}, nil
	case db.DriverSQLite:
		conn, err = db.OpenSQLite(cfg.Storage.SQLitePath)
		if err == nil {
			log.Printf("[INFO] opened sqlite: %s", cfg.Storage.SQLitePath)
		}
	case db.DriverMySQL:
		conn, err = db.Connect(cfg.DB)
		if err == nil {
			log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)
		}
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(ctx, conn, cfg.Storage.Driver); err != nil {
		conn.Close()
		return nil, nil, nil, err
	}
	return sqlstore.New(conn, cfg.Storage.Driver), auth.NewStore(conn), func() { conn.Close() }, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
