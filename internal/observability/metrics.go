package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

// Metrics is nil when METRICS_ENABLED is off. Every method is a no-op on a
// nil receiver so callers never branch on it.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	jobRuns     *CounterVec
	jobDuration *HistogramVec
	queueDepth  *GaugeVec

	attempts    *CounterVec
	bandAwarded *HistogramVec

	emails     *CounterVec
	sseClients *GaugeVec
	dbPool     *GaugeVec
	redisUp    *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

var bandBuckets = []float64{1, 2, 3, 4, 4.5, 5, 5.5, 6, 6.5, 7, 7.5, 8, 8.5, 9}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		log.Info("metrics enabled")
	})
	return instance
}

func newMetrics() *Metrics {
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("ielts_api_requests_total", "API requests by method, route and status.", "method", "route", "status"),
		apiLatency:  NewHistogramVec("ielts_api_request_duration_seconds", "API latency by method and route.", latency, "method", "route"),
		apiInflight: NewGaugeVec("ielts_api_inflight_requests", "In-flight API requests."),

		llmRequests: NewCounterVec("ielts_llm_requests_total", "LLM requests by model, endpoint and status.", "model", "endpoint", "status"),
		llmLatency:  NewHistogramVec("ielts_llm_request_duration_seconds", "LLM latency.", []float64{0.5, 1, 2, 5, 10, 20, 40, 80}, "model", "endpoint"),
		llmTokens:   NewCounterVec("ielts_llm_tokens_total", "LLM tokens by model and direction.", "model", "direction"),

		jobRuns:     NewCounterVec("ielts_job_runs_total", "Finished job runs by type and status.", "job_type", "status"),
		jobDuration: NewHistogramVec("ielts_job_duration_seconds", "Job handler duration.", []float64{0.1, 0.5, 1, 5, 10, 30, 60, 180, 600}, "job_type"),
		queueDepth:  NewGaugeVec("ielts_job_queue_depth", "Job runs by status.", "status"),

		attempts:    NewCounterVec("ielts_scored_attempts_total", "Scored attempts by skill.", "skill"),
		bandAwarded: NewHistogramVec("ielts_band_awarded", "Bands awarded by skill.", bandBuckets, "skill"),

		emails:     NewCounterVec("ielts_emails_total", "Outbound email by kind and status.", "kind", "status"),
		sseClients: NewGaugeVec("ielts_sse_clients", "Connected SSE clients."),
		dbPool:     NewGaugeVec("ielts_db_pool", "database/sql pool stats.", "stat"),
		redisUp:    NewGaugeVec("ielts_redis_up", "1 when the last redis ping succeeded."),
	}
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(model, endpoint, status)
	m.llmLatency.Observe(dur.Seconds(), model, endpoint)
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(jobType, status)
	m.jobDuration.Observe(dur.Seconds(), jobType)
}

func (m *Metrics) ObserveBand(skill string, band float64) {
	if m == nil {
		return
	}
	m.attempts.Inc(skill)
	m.bandAwarded.Observe(band, skill)
}

func (m *Metrics) IncEmail(kind, status string) {
	if m == nil {
		return
	}
	m.emails.Inc(kind, status)
}

func (m *Metrics) SSEClients(delta float64) {
	if m == nil {
		return
	}
	m.sseClients.Add(delta)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	type writer interface{ WritePrometheus(io.Writer) error }
	for _, x := range []writer{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.jobRuns, m.jobDuration, m.queueDepth,
		m.attempts, m.bandAwarded,
		m.emails, m.sseClients, m.dbPool, m.redisUp,
	} {
		if err := x.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

// StartServer serves /metrics on its own listener until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil || addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

// StartCollectors polls the database pool, the job queue and redis on
// METRICS_SCRAPE_INTERVAL_SECONDS. rdb may be nil.
func (m *Metrics) StartCollectors(ctx context.Context, log *logger.Logger, db *gorm.DB, rdb redis.UniversalClient) {
	if m == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collect(ctx, log, db, rdb)
			}
		}
	}()
}

func (m *Metrics) collect(ctx context.Context, log *logger.Logger, db *gorm.DB, rdb redis.UniversalClient) {
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			st := sqlDB.Stats()
			m.dbPool.Set(float64(st.OpenConnections), "open")
			m.dbPool.Set(float64(st.InUse), "in_use")
			m.dbPool.Set(float64(st.Idle), "idle")
			m.dbPool.Set(float64(st.WaitCount), "wait_count")
		}
		var rows []struct {
			Status string
			Count  int64
		}
		if err := db.WithContext(ctx).Model(&types.JobRun{}).
			Select("status, count(*) AS count").
			Group("status").
			Scan(&rows).Error; err != nil {
			log.Warn("metrics: job queue depth query failed", "error", err)
		} else {
			for _, s := range []string{types.JobStatusQueued, types.JobStatusRunning, types.JobStatusSucceeded, types.JobStatusFailed, types.JobStatusCanceled} {
				m.queueDepth.Set(0, s)
			}
			for _, r := range rows {
				m.queueDepth.Set(float64(r.Count), r.Status)
			}
		}
	}
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
		} else {
			m.redisUp.Set(1)
		}
	}
}
