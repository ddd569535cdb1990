// Package worker exports scored rows to ClickHouse through a buffered worker
// pool. Runs finish without waiting on the analytics store:
// - Backpressure handling via load shedding
// - Batch inserts for efficient ClickHouse writes
// - Graceful shutdown with flush guarantees

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/riftluck/stats-api/internal/models"
)

// Prometheus metrics
var (
	rowsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftluck_export_rows_enqueued_total",
		Help: "Total number of scored rows queued for export",
	})

	rowsExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftluck_export_rows_exported_total",
		Help: "Total number of scored rows written to ClickHouse",
	})

	rowsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftluck_export_rows_failed_total",
		Help: "Total number of scored rows that failed export",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riftluck_export_queue_depth",
		Help: "Current depth of the export queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riftluck_export_batch_duration_seconds",
		Help:    "Duration of batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})

	rowsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riftluck_export_rows_load_shed_total",
		Help: "Total number of scored rows dropped due to load shedding",
	})
)

const CreateTableSQL = `
CREATE TABLE IF NOT EXISTS scored_games (
	run_id               UUID,
	exported_at          DateTime64(3),
	match_id             String,
	player_id            String,
	team_id              Int32,
	role                 LowCardinality(String),
	impact_score         Float64,
	impact_rank_on_team  UInt8,
	p_win_10min          Float64,
	win                  UInt8,
	bucket               LowCardinality(String),
	z_damage_share       Nullable(Float64),
	z_kill_participation Nullable(Float64),
	z_cs_per_min         Nullable(Float64),
	z_vision_per_min     Nullable(Float64)
) ENGINE = MergeTree
ORDER BY (player_id, match_id, run_id)
`

const insertSQL = `
	INSERT INTO scored_games (
		run_id, exported_at, match_id, player_id, team_id, role,
		impact_score, impact_rank_on_team, p_win_10min, win, bucket,
		z_damage_share, z_kill_participation, z_cs_per_min, z_vision_per_min
	)
`

// Job is one scored row waiting for export.
type Job struct {
	RunID     string
	Row       models.ScoredGameRow
	Timestamp time.Time
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	ClickHouse    driver.Conn
	Logger        *zap.Logger
}

// Pool manages a pool of export workers
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
	stopOnce sync.Once
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Migrate creates the export table when it does not exist.
func (p *Pool) Migrate(ctx context.Context) error {
	return p.config.ClickHouse.Exec(ctx, CreateTableSQL)
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Export pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop closes the queue and waits for every worker to flush.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping export pool...")
		close(p.jobQueue)
		p.wg.Wait()
		p.cancel()
		p.logger.Info("Export pool stopped")
	})
}

// Enqueue adds one row without blocking. A full queue sheds the row.
func (p *Pool) Enqueue(runID string, row models.ScoredGameRow) bool {
	job := Job{
		RunID:     runID,
		Row:       row,
		Timestamp: time.Now(),
	}

	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue row (pool stopped)", "error", r)
		}
	}()

	select {
	case p.jobQueue <- job:
		rowsEnqueued.Inc()
		return true
	default:
		rowsLoadShed.Inc()
		return false
	}
}

// EnqueueRun queues every scored row of a run and returns how many were
// accepted.
func (p *Pool) EnqueueRun(run *models.RunResult) int {
	accepted := 0
	for _, row := range run.Scored {
		if p.Enqueue(run.RunID, row) {
			accepted++
		}
	}
	if dropped := len(run.Scored) - accepted; dropped > 0 {
		p.logger.Warnw("Export queue full, rows dropped", "run_id", run.RunID, "dropped", dropped)
	}
	return accepted
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker drains the queue in batches
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]Job, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		if err := p.processBatch(batch); err != nil {
			p.logger.Errorw("Batch export failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			rowsFailed.Add(float64(len(batch)))
		} else {
			p.logger.Debugw("Batch exported", "worker", id, "batchSize", len(batch), "duration", time.Since(start))
			rowsExported.Add(float64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())

		batch = batch[:0]
	}

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, job)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-p.ctx.Done():
			flush()
			return
		}
	}
}

// processBatch writes a batch to ClickHouse
func (p *Pool) processBatch(batch []Job) error {
	ctx := context.Background()

	chBatch, err := p.config.ClickHouse.PrepareBatch(ctx, insertSQL)
	if err != nil {
		return err
	}

	for _, job := range batch {
		r := job.Row
		win := uint8(0)
		if r.Win {
			win = 1
		}
		err := chBatch.Append(
			runUUID(job.RunID),
			job.Timestamp,
			r.MatchID,
			r.PlayerID,
			int32(r.TeamID),
			r.Role.String(),
			r.ImpactScore,
			uint8(r.ImpactRankOnTeam),
			r.PWin10Min,
			win,
			string(r.Bucket),
			r.ZDamageShare,
			r.ZKillParticipation,
			r.ZCSPerMin,
			r.ZVisionPerMin,
		)
		if err != nil {
			p.logger.Warnw("Failed to append row to batch", "error", err, "match_id", r.MatchID, "player_id", r.PlayerID)
			continue
		}
	}

	return chBatch.Send()
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}

// runUUID keeps run ids usable as a ClickHouse UUID even when they were not
// generated as one.
func runUUID(s string) uuid.UUID {
	if id, err := uuid.Parse(s); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(s))
}
