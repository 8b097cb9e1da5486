package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/audit"
	"github.com/hedeqiang/web3-ethereum-defi/internal/chain"
	"github.com/hedeqiang/web3-ethereum-defi/internal/guard"
	"github.com/hedeqiang/web3-ethereum-defi/internal/helpers"
	"github.com/hedeqiang/web3-ethereum-defi/internal/telemetry"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "run the validation/admin HTTP surface",
	Action: runServe,
}

func runServe(cliCtx *cli.Context) error {
	telemetry.Start()
	defer telemetry.Stop()

	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trail, err := audit.Open(cfg.AUDIT_DB_PATH)
	if err != nil {
		return err
	}
	defer trail.Close()

	var reader guard.BalanceReader
	if cfg.RPC_URL != "" {
		client, err := chain.Dial(ctx, cfg.RPC_URL)
		if err != nil {
			return err
		}
		defer client.Close()
		reader = client
	}

	g, err := buildGuard(cfg, trail, reader)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.LISTEN_ADDR,
		Handler: newRouter(g, trail),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	telemetry.Infof("guardd listening on %s", cfg.LISTEN_ADDR)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Wire types for the HTTP surface.

type actionRequest struct {
	Target string          `json:"target"`
	Data   string          `json:"data"`
	Sub    []actionRequest `json:"sub,omitempty"`
}

type validateRequest struct {
	Sender   string        `json:"sender"`
	AnyAsset bool          `json:"any_asset"`
	Action   actionRequest `json:"action"`
}

type validateResponse struct {
	Allowed bool   `json:"allowed"`
	Kind    string `json:"kind,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type whitelistRequest struct {
	Kind    string `json:"kind"` // sender | asset | receiver | target
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
	Note    string `json:"note"`
}

func newRouter(g *guard.Guard, trail *audit.Trail) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/validate", handleValidate(g, trail))
	r.Post("/whitelist", handleWhitelist(g))
	r.Get("/whitelist", handleWhitelistGet(g))
	r.Get("/audit/tail", handleAuditTail(trail))
	r.Get("/audit/verify", handleAuditVerify(trail))
	r.Get("/logs/tail", handleLogsTail())

	return r
}

func decodeAction(req actionRequest) (guard.Action, error) {
	act := guard.Action{}
	if req.Target != "" {
		addr, err := helpers.ValidateAddress(req.Target)
		if err != nil {
			return act, err
		}
		act.Target = addr
	}
	if req.Data != "" {
		data, err := hex.DecodeString(strings.TrimPrefix(req.Data, "0x"))
		if err != nil {
			return act, err
		}
		act.Data = data
	}
	for _, sub := range req.Sub {
		child, err := decodeAction(sub)
		if err != nil {
			return act, err
		}
		act.Sub = append(act.Sub, child)
	}
	return act, nil
}

func handleValidate(g *guard.Guard, trail *audit.Trail) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sender := common.HexToAddress(req.Sender)
		act, err := decodeAction(req.Action)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := validateResponse{Allowed: true}
		if err := g.ValidateCall(sender, act, req.AnyAsset); err != nil {
			resp = validateResponse{
				Allowed: false,
				Kind:    guard.KindOf(err).String(),
				Reason:  err.Error(),
			}
			if _, auditErr := trail.Record(audit.Event{
				Kind: "blocked",
				Key:  act.Target.Hex(),
				Note: err.Error(),
			}); auditErr != nil {
				telemetry.Errorf("record blocked action: %v", auditErr)
			}
		}
		writeJSON(w, resp)
	}
}

func parseKind(s string) (guard.Kind, bool) {
	switch s {
	case "sender":
		return guard.KindSender, true
	case "asset":
		return guard.KindAsset, true
	case "receiver":
		return guard.KindReceiver, true
	case "target":
		return guard.KindTarget, true
	default:
		return 0, false
	}
}

func handleWhitelist(g *guard.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req whitelistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind, ok := parseKind(req.Kind)
		if !ok {
			http.Error(w, "unknown whitelist kind", http.StatusBadRequest)
			return
		}
		key, err := helpers.ValidateAddress(req.Key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := g.SetEntry(kind, key, req.Enabled, req.Note); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]bool{"ok": true})
	}
}

func handleWhitelistGet(g *guard.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := parseKind(r.URL.Query().Get("kind"))
		if !ok {
			http.Error(w, "unknown whitelist kind", http.StatusBadRequest)
			return
		}
		key, err := helpers.ValidateAddress(r.URL.Query().Get("key"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]bool{"enabled": g.Get(kind, key)})
	}
}

func handleAuditTail(trail *audit.Trail) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n <= 0 {
			n = 50
		}
		records, err := trail.Tail(n)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
	}
}

func handleAuditVerify(trail *audit.Trail) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := trail.Verify(); err != nil {
			writeJSON(w, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func handleLogsTail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n <= 0 {
			n = 100
		}
		writeJSON(w, telemetry.Tail(n))
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
