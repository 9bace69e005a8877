package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avanta-group/claims-cli/internal/model"
	"github.com/avanta-group/claims-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve screening artifacts over HTTP",
	Long:  "Read-only JSON API over claims, reconciliation artifacts, and screening runs, for the case-review UI. The server never mutates state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("serve: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("serve: listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/claims", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		claims, err := st.ListClaims(req.Context(), limit, 0)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, claims)
	})

	r.Get("/claims/{claimID}", func(w http.ResponseWriter, req *http.Request) {
		claim, err := st.GetClaim(req.Context(), chi.URLParam(req, "claimID"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "claim not found"})
			return
		}
		writeJSON(w, http.StatusOK, claim)
	})

	r.Get("/claims/{claimID}/runs", func(w http.ResponseWriter, req *http.Request) {
		runs, err := st.ListScreeningRuns(req.Context(), store.RunFilter{
			ClaimID: chi.URLParam(req, "claimID"),
			Status:  model.RunStatus(req.URL.Query().Get("status")),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/claims/{claimID}/latest", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.LatestScreeningRun(req.Context(), chi.URLParam(req, "claimID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if run == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed runs"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Get("/runs/{runID}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetScreeningRun(req.Context(), chi.URLParam(req, "runID"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("serve: request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
