package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
)

type RouterConfig struct {
	Service  *appointment.Service
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   zerolog.Logger
	Gatherer prometheus.Gatherer
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Gatherer != nil {
		r.Get("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	}

	// Scheduling endpoints. The original clients POST everywhere, including
	// the read projections; the wire shapes are kept as-is.
	r.Post("/book-appointment", bookAppointmentHandler(cfg.Service))
	r.Post("/fetch-doctors", fetchDoctorsHandler(cfg.Service))
	r.Post("/fetch-appointments", fetchAppointmentsHandler(cfg.Service))
	r.Post("/fetch-my-appointments", fetchMyAppointmentsHandler(cfg.Service))
	r.Post("/available-slots", availableSlotsHandler(cfg.Service))
	r.Post("/cancel-appointment", cancelAppointmentHandler(cfg.Service))
	r.Post("/reschedule-appointment", rescheduleAppointmentHandler(cfg.Service))
	r.Post("/change-status-appointment", changeStatusHandler(cfg.Service))

	return r
}
