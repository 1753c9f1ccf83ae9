package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tradepost.gg/internal/catalogs"
	"tradepost.gg/internal/engine"
	"tradepost.gg/internal/persistence/indexdb"
	"tradepost.gg/internal/persistence/ledgerdb"
	"tradepost.gg/internal/transport/shopapi"
	"tradepost.gg/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the transaction/regen index db")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	_ = os.MkdirAll(*dataDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	logger.Printf("catalogs loaded: items=%d (digest %.12s) quests=%d (digest %.12s)",
		len(cats.Items.Defs), cats.Items.Digest, len(cats.Quests.ByID), cats.Quests.Digest)

	ledger, err := ledgerdb.Open(filepath.Join(*dataDir, "ledger.db"))
	if err != nil {
		logger.Fatalf("open ledger db: %v", err)
	}
	defer ledger.Close()

	var idx *indexdb.Store
	if !*disableDB {
		idx, err = indexdb.Open(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
	}

	post := engine.New(engine.Config{
		Tuning:    tune,
		Catalogs:  cats,
		Ledger:    ledger,
		Inv:       ledger.Inventory(),
		Index:     idx,
		StatePath: filepath.Join(*dataDir, "state.zst"),
		Logger:    logger,
	})
	post.Restore()
	post.Activate()

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				post.Tick()
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		st := post.Status()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP tradepost_drop_seconds_remaining Seconds until the current drop rotation expires.\n")
		fmt.Fprintf(rw, "# TYPE tradepost_drop_seconds_remaining gauge\n")
		fmt.Fprintf(rw, "tradepost_drop_seconds_remaining %d\n", st.DropSecondsRemaining)

		fmt.Fprintf(rw, "# HELP tradepost_drop_generation Monotonic drop rotation counter.\n")
		fmt.Fprintf(rw, "# TYPE tradepost_drop_generation counter\n")
		fmt.Fprintf(rw, "tradepost_drop_generation %d\n", st.DropGeneration)

		fmt.Fprintf(rw, "# HELP tradepost_buyback_seconds_to_regen Seconds until the buy-back offers regenerate.\n")
		fmt.Fprintf(rw, "# TYPE tradepost_buyback_seconds_to_regen gauge\n")
		fmt.Fprintf(rw, "tradepost_buyback_seconds_to_regen %d\n", st.BuybackSecondsToRegen)

		fmt.Fprintf(rw, "# HELP tradepost_quest_seconds_to_reset Seconds until the daily quest reset.\n")
		fmt.Fprintf(rw, "# TYPE tradepost_quest_seconds_to_reset gauge\n")
		fmt.Fprintf(rw, "tradepost_quest_seconds_to_reset %d\n", st.QuestSecondsToReset)
	})

	api := shopapi.NewServer(post, logger)
	api.Register(mux)

	enableAdminHTTP := envBool("TP_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("TP_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only: re-read tuning.yaml and swap the pricing parameters in
		// place, rescaling live offers to the new price base.
		mux.HandleFunc("/admin/v1/reload", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			fresh, err := tuning.Load(tp)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
				return
			}
			post.ReloadTuning(fresh)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true})
		})
	} else {
		logger.Printf("admin endpoints disabled (TP_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	post.Save()
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
