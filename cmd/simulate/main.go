package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/db"
)

// The simulator hammers /book-appointment with deliberately colliding
// (doctor, date, slot) picks and verifies afterwards that no triple ended
// up with more than one non-cancelled appointment.

type simConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	DoctorLimit int
	DateWindow  int // days from today the pickers spread over
	PostgresDSN string
}

type doctorInfo struct {
	ID    uuid.UUID
	Slots []string
}

type opMetrics struct {
	Total     int64
	Booked    int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *opMetrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Booked, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *opMetrics) stats() (avg, p50, p95 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0, 0
	}
	ls := make([]time.Duration, len(m.latencies))
	copy(ls, m.latencies)
	sort.Slice(ls, func(i, j int) bool { return ls[i] < ls[j] })

	var sum time.Duration
	for _, l := range ls {
		sum += l
	}
	avg = sum / time.Duration(len(ls))
	p50 = ls[len(ls)*50/100]
	p95 = ls[min(len(ls)*95/100, len(ls)-1)]
	return avg, p50, p95
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func main() {
	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration+time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	patients, err := loadPatientIDs(ctx, pool, 500)
	if err != nil {
		log.Fatal().Err(err).Msg("load patients")
	}
	doctors, err := loadDoctors(ctx, pool, cfg.DoctorLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("load doctors")
	}
	if len(patients) == 0 || len(doctors) == 0 {
		log.Fatal().Msg("no seed data, run cmd/seed first")
	}

	log.Info().
		Int("patients", len(patients)).
		Int("doctors", len(doctors)).
		Int("workers", cfg.Workers).
		Dur("duration", cfg.Duration).
		Msg("simulation starting")

	metrics := &opMetrics{}
	runCtx, stopRun := context.WithTimeout(ctx, cfg.Duration)
	defer stopRun()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			client := &http.Client{Timeout: 10 * time.Second}
			for runCtx.Err() == nil {
				doc := doctors[rng.Intn(len(doctors))]
				if len(doc.Slots) == 0 {
					continue
				}
				body := map[string]any{
					"patientId":       patients[rng.Intn(len(patients))].String(),
					"doctorId":        doc.ID.String(),
					"appointmentDate": time.Now().AddDate(0, 0, rng.Intn(cfg.DateWindow)+1).Format("2006-01-02"),
					"timeSlot":        doc.Slots[rng.Intn(len(doc.Slots))],
					"serviceType":     "General Check-up",
				}
				bookOnce(runCtx, client, cfg.APIBaseURL, body, metrics)
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	avg, p50, p95 := metrics.stats()
	log.Info().
		Int64("total", metrics.Total).
		Int64("booked", metrics.Booked).
		Int64("conflict", metrics.Conflict).
		Int64("error", metrics.Error).
		Dur("avg", avg).Dur("p50", p50).Dur("p95", p95).
		Msg("simulation finished")

	dupes, err := countDoubleBookings(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("verify double bookings")
	}
	if dupes > 0 {
		log.Fatal().Int("triples", dupes).Msg("INVARIANT VIOLATED: double-booked slots found")
	}
	log.Info().Msg("invariant holds: no double-booked slots")
}

func bookOnce(ctx context.Context, client *http.Client, baseURL string, body map[string]any, metrics *opMetrics) {
	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/book-appointment", bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			metrics.record(time.Since(start), 0)
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	metrics.record(time.Since(start), resp.StatusCode)
}

func loadPatientIDs(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func loadDoctors(ctx context.Context, pool *pgxpool.Pool, limit int) ([]doctorInfo, error) {
	rows, err := pool.Query(ctx, `SELECT id, time_slots FROM doctors LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []doctorInfo
	for rows.Next() {
		var d doctorInfo
		if err := rows.Scan(&d.ID, &d.Slots); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func countDoubleBookings(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM (
			SELECT doctor_id, appointment_date, time_slot
			FROM appointments
			WHERE status <> 'Cancelled'
			GROUP BY doctor_id, appointment_date, time_slot
			HAVING count(*) > 1
		) dup
	`).Scan(&n)
	return n, err
}

func loadSimConfig() simConfig {
	cfg := simConfig{
		APIBaseURL:  getEnv("SIM_API_URL", "http://127.0.0.1:8080"),
		Duration:    30 * time.Second,
		Workers:     20,
		DoctorLimit: 5,
		DateWindow:  3,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}
	if v := os.Getenv("SIM_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Duration = d
		}
	}
	if v := os.Getenv("SIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("SIM_DOCTORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DoctorLimit = n
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
