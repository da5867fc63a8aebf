package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"clinicore.org/internal/auth"
	"clinicore.org/internal/httpapi"
	"clinicore.org/internal/obs"
	"clinicore.org/internal/records"
	"clinicore.org/internal/store/memory"
	"clinicore.org/internal/store/pg"
	"clinicore.org/internal/stream"
	"clinicore.org/internal/tenancy"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("CLINICORE_AUTH_SECRET")
	if secret == "" {
		log.Fatal("CLINICORE_AUTH_SECRET is required")
	}

	addr := envOr("CLINICORE_ADDR", ":8080")
	grpcAddr := envOr("CLINICORE_GRPC_ADDR", ":9090")

	var (
		identity auth.IdentityStore
		links    tenancy.LinkStore
		schema   tenancy.SchemaSource
		recs     records.Store
		cabinets records.CabinetStore
		probe    httpapi.ReadyProbe
	)

	if dsn := os.Getenv("CLINICORE_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		identity, links, schema = store, store, store
		recs, cabinets = store, store
		probe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		log.Printf("CLINICORE_PG_DSN is empty, using in-memory store with demo data")
		mem := memory.New()
		seedDemo(mem)
		identity, links, schema = mem, mem, mem
		recs, cabinets = mem, mem
	}

	registry := tenancy.DefaultRegistry()
	resolver := tenancy.NewResolver(links)

	tokens, err := auth.NewService(identity, resolver, auth.WithSecret(secret))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Version:    version,
		ReadyProbe: probe,
		Tokens:     tokens,
		Identity:   identity,
		Resolver:   resolver,
		Links:      links,
		Registry:   registry,
		Records:    recs,
		Cabinets:   cabinets,
		Events:     stream.New(),
	})

	// Registry consistency check runs in the background and only warns.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tenancy.NewChecker(registry, schema).Run(ctx)
	}()

	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	go func() {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	obs.SetReady(true)
	log.Printf("Starting clinicore-api %s on %s", version, addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	grpcSrv.GracefulStop()
	log.Println("Stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// seedDemo loads fixtures so the API is usable without a database. The
// password for every demo account is "clinicore".
func seedDemo(mem *memory.Store) {
	hash, err := auth.HashPassword("clinicore")
	if err != nil {
		log.Fatalf("seed demo: %v", err)
	}
	now := time.Now().UTC()

	mem.AddPrincipal(auth.Principal{
		ID: "pr-root", Email: "root@clinicore.local", FullName: "Root Admin",
		Role: auth.RoleSuperAdmin, PasswordHash: hash, CreatedAt: now, UpdatedAt: now,
	})
	mem.AddPrincipal(auth.Principal{
		ID: "pr-owner", Email: "owner@clinicore.local", FullName: "Demo Owner",
		Role: auth.RoleOwner, PasswordHash: hash, CreatedAt: now, UpdatedAt: now,
	})
	mem.AddPrincipal(auth.Principal{
		ID: "pr-doctor", Email: "doctor@clinicore.local", FullName: "Demo Doctor",
		Role: auth.RoleDoctor, PasswordHash: hash, CreatedAt: now, UpdatedAt: now,
	})

	cab := mem.AddCabinet(tenancy.Cabinet{Name: "Demo Cabinet", Published: true})
	mem.LinkOwner("pr-owner", cab.ID)
	mem.LinkStaff("pr-doctor", cab.ID)

	mem.Put("patients", "demo-patient-1", cab.ID, true, map[string]any{
		"full_name": "Alex Stone", "birth_date": "1990-04-12",
	})
	mem.Put("visits", "demo-visit-1", cab.ID, true, map[string]any{
		"patient_id": "demo-patient-1", "reason": "checkup", "date": "2026-08-01",
	})
}
