package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anypos-register/config"
	"anypos-register/internal/events"
	"anypos-register/internal/gateway/clients"
	"anypos-register/internal/hardware/printer"
	"anypos-register/internal/services/catalog"
	"anypos-register/internal/services/dayend"
	"anypos-register/internal/services/pos"
	"anypos-register/internal/services/session"
	"anypos-register/internal/store"

	"github.com/go-redis/redis/v8"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// serviceName is what gRPC health checks ask about.
const serviceName = "anypos.Register"

func main() {
	cfg := config.LoadConfig()

	redisClient := config.NewRedisClient(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	api, err := clients.NewAPIClient(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		log.Fatalf("Failed to create POS API client: %v", err)
	}

	deps := buildRegister(cfg, api, redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthServer := health.NewServer()
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	deps.monitor = clients.NewHealthMonitor(api, 15*time.Second, func(healthy bool) {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if healthy {
			status = healthpb.HealthCheckResponse_SERVING
		}
		healthServer.SetServingStatus(serviceName, status)
	})
	go deps.monitor.Run(ctx)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		log.Printf("gRPC health service listening on :%s", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           newRouter(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Register %s listening on :%s (POS API %s)", cfg.RegisterID, cfg.HTTPPort, api.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down register")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	healthServer.Shutdown()
	grpcServer.GracefulStop()
}

// register holds everything the HTTP routes hang off.
type register struct {
	registerID string
	api        *clients.APIClient
	redis      *redis.Client
	sessions   *session.Manager
	ledger     *dayend.Ledger
	catalog    *catalog.Service
	pos        *pos.Service
	printer    *printer.Service
	monitor    *clients.HealthMonitor
}

func buildRegister(cfg config.Config, api *clients.APIClient, redisClient *redis.Client) *register {
	var (
		sessionStore session.Store
		cartStore    pos.CartStore
		publisher    events.Publisher = events.NopPublisher{}
	)
	if redisClient != nil {
		rs := store.NewRedisStore(redisClient)
		sessionStore, cartStore = rs, rs
		publisher = events.NewRedisPublisher(redisClient)
	} else {
		ms := store.NewMemoryStore()
		sessionStore, cartStore = ms, ms
	}

	device, err := printer.NewDevice(cfg.Printer.Type, cfg.Printer.DevicePath, cfg.Printer.Address, cfg.Printer.DialTimeout)
	if err != nil {
		log.Printf("Printer disabled: %v", err)
		device = printer.NewNullDevice()
	}
	printerService := printer.NewService(device, cfg.Printer.PaperWidth, cfg.Report.CompanyName)

	ledger := dayend.NewLedger(clients.NewDayEndClient(api), publisher, cfg.RegisterID)
	manager := session.NewManager(cfg.RegisterID, api, ledger, sessionStore)
	// A 401 on any authenticated call ends the session, and selling stops
	// once the day-end is closed.
	api.OnUnauthorized(manager.Invalidate)
	ledger.OnStateChange(manager.DayEndChanged)

	catalogService := catalog.NewService(api, redisClient, cfg.Catalog.CacheTTL)
	taxRate := cfg.TaxRateDecimal()

	return &register{
		registerID: cfg.RegisterID,
		api:        api,
		redis:      redisClient,
		sessions:   manager,
		ledger:     ledger,
		catalog:    catalogService,
		pos: pos.NewService(pos.Options{
			RegisterID: cfg.RegisterID,
			TaxRate:    &taxRate,
			Carts:      cartStore,
			Sales:      api,
			Ledger:     ledger,
			Publisher:  publisher,
			Printer:    printerService,
			Stock:      catalogService,
		}),
		printer: printerService,
	}
}
