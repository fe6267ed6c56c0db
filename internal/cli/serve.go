package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tablepack/pkg/cache"
	pkgerrors "github.com/matzehuels/tablepack/pkg/errors"
	"github.com/matzehuels/tablepack/pkg/manifest"
	"github.com/matzehuels/tablepack/pkg/observability"
	"github.com/matzehuels/tablepack/pkg/pipeline"
)

// maxManifestBytes bounds the request body of POST /repack.
const maxManifestBytes = 16 << 20

// serveCommand creates the serve command: repacking over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr        string
		redisAddr   string
		cachePrefix string
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose repacking over HTTP",
		Long: `Expose repacking over HTTP.

Endpoints:
  POST /repack    JSON manifest in, JSON {stream, report} out (stream base64)
  GET  /healthz   liveness probe

With --redis the artifact cache is shared between instances; otherwise
the local file cache is used. --cache-prefix namespaces keys when several
deployments share one Redis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, redisAddr, cachePrefix, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for a shared cache (host:port)")
	cmd.Flags().StringVar(&cachePrefix, "cache-prefix", "", "prefix for cache keys")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, redisAddr, cachePrefix string, noCache bool) error {
	cc, err := c.serveCache(ctx, redisAddr, noCache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}

	var keyer cache.Keyer
	if cachePrefix != "" {
		keyer = cache.NewScopedKeyer(nil, cachePrefix)
	}
	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	defer runner.Close()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(c.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/repack", c.handleRepack(runner))

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	c.Logger.Info("serving", "addr", addr, "redis", redisAddr != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *CLI) serveCache(ctx context.Context, redisAddr string, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if redisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: redisAddr})
	}
	return newCache(false)
}

// repackResponse is the wire format of POST /repack.
type repackResponse struct {
	Stream string          `json:"stream"` // base64-encoded byte stream
	Report pipeline.Report `json:"report"`
}

// errorResponse is the wire format of error replies.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *CLI) handleRepack(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, maxManifestBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, pkgerrors.New(pkgerrors.ErrCodeInvalidManifest, "read body"))
			return
		}

		doc, err := manifest.ParseJSON(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		result, err := runner.Execute(req.Context(), doc, pipeline.Options{})
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(repackResponse{
			Stream: base64.StdEncoding.EncodeToString(result.Stream),
			Report: result.Report,
		})
	}
}

// statusForError maps structured error codes to HTTP statuses. Input
// problems are the client's fault; everything else is ours.
func statusForError(err error) int {
	switch pkgerrors.GetCode(err) {
	case pkgerrors.ErrCodeInvalidInput, pkgerrors.ErrCodeInvalidManifest,
		pkgerrors.ErrCodeGraphStructure, pkgerrors.ErrCodeOffsetUnderflow:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    string(pkgerrors.GetCode(err)),
		Message: pkgerrors.UserMessage(err),
	})
}

// requestID attaches a UUID to each request for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, req.WithContext(withRequestID(req.Context(), id)))
	})
}

// requestIDKey is the context key for the request ID.
const requestIDKey ctxKey = 1

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// logRequests logs each request with its ID, status, and duration, and
// feeds the serve observability hooks.
func (c *CLI) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		observability.Serve().OnRequest(req.Context(), req.Method, req.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		duration := time.Since(start)
		observability.Serve().OnResponse(req.Context(), req.Method, req.URL.Path, ww.Status(), duration)
		c.Logger.Info("request",
			"id", requestIDFromContext(req.Context()),
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"duration", duration.Round(time.Millisecond))
	})
}
