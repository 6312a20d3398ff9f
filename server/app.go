package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyberlab/config"
	"cyberlab/internal/auth"
	"cyberlab/internal/db"
	"cyberlab/internal/health"
	"cyberlab/internal/keyvault"
	"cyberlab/internal/logs"
	"cyberlab/internal/mailer"
	"cyberlab/internal/middleware"
	"cyberlab/internal/models"
	"cyberlab/internal/password"
	"cyberlab/internal/scanner"
	"cyberlab/internal/simulations"
	"cyberlab/internal/users"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	rdb        *redis.Client
	Router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB (опционально) */
	if drv := a.cfg.Database.Driver; drv != "" {
		d, err := db.Open(drv, a.cfg.Database.DSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		a.db = d

		if err := a.db.AutoMigrate(
			&models.User{},
			&models.OneTimeCode{},
			&models.Key{},
			&models.Certificate{},
			&models.ScanRecord{},
		); err != nil {
			log.Fatalf("db migrate failed: %v", err)
		}
	}

	/* 3) Redis для одноразовых кодов (опционально) */
	if addr := a.cfg.Redis.Addr; addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: a.cfg.Redis.Password,
		})
	}

	st := a.buildStores()

	/* 4) Сервисы */
	smtp := mailer.New(mailer.Options{
		Host:     a.cfg.SMTP.Host,
		Port:     a.cfg.SMTP.Port,
		User:     a.cfg.SMTP.User,
		Password: a.cfg.SMTP.Password,
		From:     a.cfg.SMTP.From,
	})
	var sender auth.Sender
	var kvMailer keyvault.Mailer
	if smtp != nil {
		sender = smtp
		kvMailer = smtp
	}

	tokens := auth.NewTokenIssuer(a.cfg.Auth.SecretKey, a.cfg.TokenTTL())
	authSvc := auth.NewService(st.users, st.codes, tokens, sender, a.cfg.CodeTTL())

	engine := scanner.NewEngine(scanner.DefaultCatalog())
	scanH := scanner.NewHandler(engine, st.scans, scanner.NewFetcher())

	var checker *password.Checker
	if a.cfg.HIBP.Enabled {
		checker = password.NewChecker(password.NewHIBPClient(a.cfg.HIBPTimeout()))
	} else {
		checker = password.NewChecker(nil)
	}
	pwH := password.NewHandler(checker)

	kvSvc := keyvault.NewService(st.vault, kvMailer)
	kvH := keyvault.NewHandler(kvSvc)

	usersH := users.NewHandler(st.users)

	simH := simulations.NewHandler(simulations.NewService())

	/* 5) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 6) Health */
	if a.db != nil {
		health.RegisterRoutesWithDB(a.Router, a.db) // /healthz, /readyz
	} else {
		health.RegisterRoutes(a.Router) // только /healthz
	}

	/* 7) Доменные маршруты */
	auth.RegisterRoutes(a.Router, authSvc)
	scanner.RegisterRoutes(a.Router, authSvc, scanH)
	password.RegisterRoutes(a.Router, authSvc, pwH)
	keyvault.RegisterRoutes(a.Router, authSvc, kvH)
	users.RegisterRoutes(a.Router, authSvc, usersH)
	simulations.RegisterRoutes(a.Router, authSvc, simH)

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// Жёсткие таймауты — это важно для production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	return nil
}
