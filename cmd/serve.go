package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-cli/internal/model"
	"github.com/sells-group/cellar-cli/internal/resilience"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the drinking-window HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		env, err := initCascade(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(env.Orchestrator, env.Breakers),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
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

// windowResolver is the part of the orchestrator the API needs.
type windowResolver interface {
	Resolve(ctx context.Context, q model.WineQuery) (model.CascadeResult, error)
}

const maxRequestBody = 64 << 10

// echoRequestID returns the request ID assigned by middleware.RequestID in the
// response headers, so callers can correlate logs with their own IDs.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(middleware.RequestIDHeader, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
}

func buildRouter(res windowResolver, breakers *resilience.Breakers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if breakers != nil {
			states := map[string]string{}
			for name, st := range breakers.Snapshot() {
				states[name] = st.String()
			}
			body["breakers"] = states
		}
		writeJSON(w, http.StatusOK, body)
	})

	h := windowHandler{res: res}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/drinking-window", h.get)
		r.Post("/drinking-window", h.post)
	})
	return r
}

type windowHandler struct {
	res windowResolver
}

type windowResponse struct {
	RequestID      string `json:"request_id"`
	DrinkingWindow string `json:"drinking_window"`
	model.CascadeResult
}

func (h windowHandler) get(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query()
	q, err := parseQuery(p.Get("name"), p.Get("vintage"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q.Varietal = p.Get("varietal")
	q.Country = p.Get("country")
	q.Region = p.Get("region")
	q.Color = model.ParseColor(p.Get("color"))
	h.resolve(w, r, q)
}

func (h windowHandler) post(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Vintage  int    `json:"vintage"`
		Varietal string `json:"varietal"`
		Country  string `json:"country"`
		Region   string `json:"region"`
		Color    string `json:"color"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := parseQuery(req.Name, fmt.Sprint(req.Vintage))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q.Varietal = req.Varietal
	q.Country = req.Country
	q.Region = req.Region
	q.Color = model.ParseColor(req.Color)
	h.resolve(w, r, q)
}

func (h windowHandler) resolve(w http.ResponseWriter, r *http.Request, q model.WineQuery) {
	result, err := h.res.Resolve(r.Context(), q)
	if err != nil {
		zap.L().Error("resolve failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("wine", q.Name),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "could not resolve drinking window")
		return
	}
	writeJSON(w, http.StatusOK, windowResponse{
		RequestID:      middleware.GetReqID(r.Context()),
		DrinkingWindow: result.DrinkingWindow(),
		CascadeResult:  result,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error":      msg,
		"request_id": middleware.GetReqID(r.Context()),
	})
}
