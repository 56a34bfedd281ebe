// cmd/ascii-chat-server/main.go
package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/n0remac/ascii-chat-server/internal/admin"
	"github.com/n0remac/ascii-chat-server/internal/adminpb"
	"github.com/n0remac/ascii-chat-server/internal/clients"
	"github.com/n0remac/ascii-chat-server/internal/config"
	"github.com/n0remac/ascii-chat-server/internal/httpadmin"
	"github.com/n0remac/ascii-chat-server/internal/logging"
	"github.com/n0remac/ascii-chat-server/internal/server"
	"github.com/n0remac/ascii-chat-server/internal/store"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("opening log file: %v", err)
		}
		defer f.Close()
		logging.SetOutput(f)
	}
	logging.SetQuiet(cfg.Quiet)

	addr := &net.TCPAddr{Port: cfg.Port}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		log.Fatalf("listen on port %d: %v", cfg.Port, err)
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Clients = clients.DefaultConfig()
	srvCfg.Clients.MaxClients = cfg.MaxClients
	srv := server.New(srvCfg, listener)

	if cfg.DBPath != "" || cfg.DBDSN != "" {
		var st *store.Store
		var err error
		if cfg.DBDSN != "" {
			st, err = store.OpenPostgres(cfg.DBDSN)
		} else {
			st, err = store.OpenSQLite(cfg.DBPath)
		}
		if err != nil {
			log.Fatalf("opening audit store: %v", err)
		}
		defer st.Close()
		srv.SetStore(st)
	}

	if cfg.AdminGRPCPort != 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.AdminGRPCPort))
		if err != nil {
			log.Fatalf("listen on admin gRPC port %d: %v", cfg.AdminGRPCPort, err)
		}
		gs := grpc.NewServer()
		adminpb.RegisterControllerServer(gs, admin.NewServer(srv.Manager(), srv.Pool()))
		go func() {
			log.Printf("admin gRPC control plane listening on :%d", cfg.AdminGRPCPort)
			if err := gs.Serve(lis); err != nil {
				log.Printf("admin gRPC listener stopped: %v", err)
			}
		}()
	}

	if cfg.AdminHTTPPort != 0 {
		h, err := httpadmin.NewHandler(srv.Manager(), srv.Pool(), cfg.AdminUser, cfg.AdminPassword)
		if err != nil {
			log.Fatalf("building http admin handler: %v", err)
		}
		go func() {
			addr := fmt.Sprintf(":%d", cfg.AdminHTTPPort)
			log.Printf("http admin stats endpoint listening on %s/stats", addr)
			if err := http.ListenAndServe(addr, h.Mux()); err != nil {
				log.Printf("http admin listener stopped: %v", err)
			}
		}()
	}

	if cfg.WSPort != 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", srv.HandleWebSocket)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.WSPort)
			log.Printf("websocket fallback transport listening on %s/ws", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("websocket listener stopped: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		// Spec §7's signal-handler minimalism: this is the only work done
		// directly in response to the signal. All teardown happens on
		// Server.Run's own goroutine once it observes should_exit.
		srv.Shutdown()
	}()

	log.Printf("ascii-chat-server listening on :%d (max_clients=%d, audio=%v)", cfg.Port, cfg.MaxClients, cfg.AudioEnabled)
	srv.Run()
}
