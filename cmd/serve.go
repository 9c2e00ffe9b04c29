package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/geosalud/acceso/internal/model"
	"github.com/geosalud/acceso/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis results over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner, closer, err := newRunner(ctx)
		if err != nil {
			return err
		}
		defer closer()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(runner),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter wires the read-only API. Every data endpoint resolves the bundle
// through the runner, so results pick up input-file changes between requests
// while unchanged inputs stay cache hits.
func newRouter(runner *pipeline.Runner) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", func(w http.ResponseWriter, req *http.Request) {
			bundle, ok := resolveBundle(w, req, runner)
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, summarize(bundle))
		})

		r.Get("/districts", func(w http.ResponseWriter, req *http.Request) {
			bundle, ok := resolveBundle(w, req, runner)
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, districtCollection(bundle.DistrictCounts))
		})

		r.Get("/departments", func(w http.ResponseWriter, req *http.Request) {
			bundle, ok := resolveBundle(w, req, runner)
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, bundle.DepartmentTotals)
		})

		r.Get("/proximity/{department}", func(w http.ResponseWriter, req *http.Request) {
			bundle, ok := resolveBundle(w, req, runner)
			if !ok {
				return
			}
			dept := chi.URLParam(req, "department")
			result, known := proximityFor(bundle, dept)
			if !known {
				writeError(w, http.StatusNotFound, fmt.Sprintf("department %q not analyzed", dept))
				return
			}
			if result == nil {
				writeError(w, http.StatusNotFound, "population centers unavailable for this run")
				return
			}
			writeJSON(w, http.StatusOK, result)
		})
	})

	return r
}

// proximityFor resolves a department path parameter against the analyzed
// set. Configured department names are conventionally uppercase; the URL
// parameter matches case-insensitively.
func proximityFor(b *model.Bundle, dept string) (*model.ProximityResult, bool) {
	for key, result := range b.Proximity {
		if strings.EqualFold(key, dept) {
			return result, true
		}
	}
	return nil, false
}

// resolveBundle loads the bundle and translates pipeline failures into HTTP
// errors: a missing or malformed input is the deployment's problem, not the
// caller's, so everything fatal maps to 503.
func resolveBundle(w http.ResponseWriter, req *http.Request, runner *pipeline.Runner) (*model.Bundle, bool) {
	bundle, err := runner.Bundle(req.Context())
	if err != nil {
		zap.L().Error("bundle unavailable", zap.Error(err))

		var missing *model.MissingFileError
		var schema *model.SchemaError
		var encoding *model.EncodingError
		switch {
		case errors.As(err, &missing):
			writeError(w, http.StatusServiceUnavailable, missing.Error())
		case errors.As(err, &schema):
			writeError(w, http.StatusServiceUnavailable, schema.Error())
		case errors.As(err, &encoding):
			writeError(w, http.StatusServiceUnavailable, encoding.Error())
		default:
			writeError(w, http.StatusServiceUnavailable, "analysis unavailable")
		}
		return nil, false
	}
	return bundle, true
}

// districtCollection renders the per-district counts as a GeoJSON
// FeatureCollection, one feature per district with its hospital count.
func districtCollection(counts []model.DistrictHospitalCount) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, len(counts))
	for _, c := range counts {
		features = append(features, &geojson.Feature{
			ID:       strconv.Itoa(c.DistrictCode),
			Geometry: c.Boundary.T,
			Properties: map[string]interface{}{
				"district_code":  c.DistrictCode,
				"district_name":  c.DistrictName,
				"hospital_count": c.HospitalCount,
			},
		})
	}
	return &geojson.FeatureCollection{Features: features}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
