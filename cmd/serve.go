package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eddy-labs/stocks-cli/internal/marketdata"
	"github.com/eddy-labs/stocks-cli/internal/model"
	"github.com/eddy-labs/stocks-cli/internal/pipeline"
	"github.com/eddy-labs/stocks-cli/internal/screener"
	"github.com/eddy-labs/stocks-cli/internal/store"
	"github.com/eddy-labs/stocks-cli/internal/universe"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, configAssumptions())
		if err != nil {
			return err
		}
		defer env.Close()

		api := &apiServer{env: env}

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", api.health)
		r.Route("/api", func(r chi.Router) {
			r.Get("/universes", api.listUniverses)
			r.Get("/philosophies", api.listPhilosophies)
			r.Get("/analyze/{ticker}", api.analyze)
			r.Post("/screen", api.screen)
			r.Get("/runs", api.listRuns)
			r.Get("/runs/{id}", api.getRun)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type apiServer struct {
	env *appEnv
}

func (s *apiServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) listUniverses(w http.ResponseWriter, r *http.Request) {
	universes, err := universe.Discover(cfg.Universe.Dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, universes)
}

func (s *apiServer) listPhilosophies(w http.ResponseWriter, r *http.Request) {
	phils, err := screener.LoadPhilosophies(cfg.Screener.PhilosophyFile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, phils)
}

func (s *apiServer) analyze(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, eris.New("ticker is required"))
		return
	}

	tf := marketdata.DefaultTimeframe()
	if period := r.URL.Query().Get("period"); period != "" {
		tf.Period = period
	}

	analysis, err := s.env.Pipeline.Analyze(r.Context(), ticker, tf)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *apiServer) screen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Universe   string `json:"universe"`
		Philosophy string `json:"philosophy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
		return
	}
	if req.Universe == "" {
		req.Universe = cfg.Universe.Default
	}
	if req.Philosophy == "" {
		req.Philosophy = cfg.Screener.Philosophy
	}

	phils, err := screener.LoadPhilosophies(cfg.Screener.PhilosophyFile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	phil := screener.GetPhilosophy(phils, req.Philosophy)
	if err := phil.Assumptions.Validate(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	u, err := universe.Find(cfg.Universe.Dir, req.Universe)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	tickers, err := universe.Load(u.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	run, err := s.env.Store.CreateRun(r.Context(), req.Universe, req.Philosophy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// Philosophy assumptions drive the valuation, same as the screen command.
	pipe := s.screenPipeline(phil)

	// The screen outlives the request; its lifetime is the server's.
	go func() {
		ctx := context.Background()
		log := zap.L().With(zap.String("run_id", run.ID), zap.String("universe", req.Universe))

		batch, err := pipe.Collect(ctx, tickers)
		if err != nil {
			log.Error("screen run failed", zap.Error(err))
			if failErr := s.env.Store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
				log.Error("failed to record run failure", zap.Error(failErr))
			}
			return
		}

		scored := screener.Score(batch.Metrics, phil.Weights)
		if err := s.env.Store.CompleteRun(ctx, run.ID, scored, batch.Skipped); err != nil {
			log.Error("failed to save run", zap.Error(err))
			return
		}
		log.Info("screen run complete",
			zap.Int("scored", len(scored)),
			zap.Int("skipped", len(batch.Skipped)),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"status": string(model.RunStatusRunning),
	})
}

// screenPipeline builds a per-request pipeline seeded with the philosophy's
// assumptions rather than the server's baseline.
func (s *apiServer) screenPipeline(phil screener.Philosophy) *pipeline.Pipeline {
	return pipeline.New(s.env.Client, phil.Assumptions,
		cfg.Valuation.DiscountVariation, cfg.Valuation.GrowthRateVariation)
}

func (s *apiServer) listRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status:   model.RunStatus(r.URL.Query().Get("status")),
		Universe: r.URL.Query().Get("universe"),
	}
	runs, err := s.env.Store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *apiServer) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.env.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
