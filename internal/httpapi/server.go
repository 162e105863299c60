package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pland/internal/hwprobe"
	"pland/internal/plan"
	"pland/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Estimate(ctx context.Context, req types.PlanRequest) (types.EstimateResponse, error)
	AutoFit(ctx context.Context, req types.PlanRequest) (types.AutoFitResponse, error)
	Models() []types.ModelCard
	Hardware(ctx context.Context) (types.HardwareResponse, error)
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/plan/estimate", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodePlanRequest(w, r)
		if !ok {
			return
		}
		start := time.Now()
		resp, err := svc.Estimate(r.Context(), req)
		if err != nil {
			writePlanError(w, r, "estimate", err, start)
			return
		}
		ObserveEstimate(resp)
		logPlanEnd(r, "estimate", http.StatusOK, start)
		writeJSON(w, resp)
	})

	r.Post("/plan/autofit", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodePlanRequest(w, r)
		if !ok {
			return
		}
		start := time.Now()
		resp, err := svc.AutoFit(r.Context(), req)
		if err != nil {
			writePlanError(w, r, "autofit", err, start)
			return
		}
		ObserveAutoFit(resp)
		logPlanEnd(r, "autofit", http.StatusOK, start)
		writeJSON(w, resp)
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: svc.Models()})
	})

	r.Get("/hardware", func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.Hardware(r.Context())
		if err != nil {
			if hwprobe.IsUnavailable(err) {
				writeJSONError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, resp)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// decodePlanRequest enforces content type and body size, then decodes the
// shared plan request body. On failure it writes the error response and
// returns ok=false.
func decodePlanRequest(w http.ResponseWriter, r *http.Request) (types.PlanRequest, bool) {
	var req types.PlanRequest
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Oversized bodies surface here too; 400 avoids leaking size details.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	return req, true
}

// writePlanError maps well-known planner errors to HTTP status codes.
func writePlanError(w http.ResponseWriter, r *http.Request, op string, err error, start time.Time) {
	status := http.StatusInternalServerError
	switch {
	case plan.IsInvalidInput(err):
		status = http.StatusBadRequest
	case hwprobe.IsUnavailable(err):
		status = http.StatusServiceUnavailable
	default:
		if he, ok := err.(HTTPError); ok {
			status = he.StatusCode()
		}
	}
	writeJSONError(w, status, err.Error())
	logPlanEnd(r, op, status, start)
}

func logPlanEnd(r *http.Request, op string, status int, start time.Time) {
	if requestLogLevel(r) < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("op", op).Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("plan end")
		return
	}
	log.Printf("plan end op=%s status=%d dur=%s", op, status, time.Since(start))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
