package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/c360studio/adw/issue"
	"github.com/c360studio/adw/pipeline"
)

// Worker is the claim-and-spawn daemon. Multiple workers may run
// against the same issue store; row locking in the store guarantees
// each issue is claimed once.
type Worker struct {
	cfg     Config
	store   issue.Store
	spawner Spawner
	metrics *Metrics
	logger  *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New validates the configuration and builds a worker with the default
// driver spawner.
func New(cfg Config, store issue.Store) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("issue store is required")
	}
	return &Worker{
		cfg:     cfg,
		store:   store,
		spawner: NewDriverSpawner(cfg.WorkingDir),
		metrics: NewMetrics(),
		logger:  slog.Default(),
		stopCh:  make(chan struct{}),
	}, nil
}

// WithSpawner replaces the subprocess spawner.
func (w *Worker) WithSpawner(s Spawner) *Worker {
	if s != nil {
		w.spawner = s
	}
	return w
}

// WithLogger sets the worker's logger.
func (w *Worker) WithLogger(logger *slog.Logger) *Worker {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// Metrics exposes the worker's metrics registry handler.
func (w *Worker) Metrics() *Metrics {
	return w.metrics
}

// Stop asks the poll loop to exit after the in-flight workflow
// finishes. Cancelling the Run context instead kills the subprocess.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Run polls the issue store until Stop is called or ctx is cancelled.
// The returned error is nil on graceful shutdown.
func (w *Worker) Run(ctx context.Context) error {
	var srv *http.Server
	if w.cfg.MetricsAddr != "" {
		srv = w.serveMetrics()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w.logger.Info("Worker started",
		"worker_id", w.cfg.WorkerID,
		"poll_interval", w.cfg.PollInterval,
		"workflow_timeout", w.cfg.WorkflowTimeout)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopped", "worker_id", w.cfg.WorkerID, "reason", "context cancelled")
			return nil
		case <-w.stopCh:
			w.logger.Info("Worker stopped", "worker_id", w.cfg.WorkerID, "reason", "stop requested")
			return nil
		default:
		}

		iss, err := w.store.ClaimNext(ctx, w.cfg.WorkerID)
		if err != nil {
			w.logger.Error("Claim failed", "worker_id", w.cfg.WorkerID, "error", err)
			w.sleep(ctx)
			continue
		}
		if iss == nil {
			w.sleep(ctx)
			continue
		}

		w.handle(ctx, iss)
	}
}

// handle runs one claimed issue through a driver subprocess and maps
// the exit onto the issue's status.
func (w *Worker) handle(ctx context.Context, iss *issue.Issue) {
	adwID := w.adwIDFor(iss)
	workflowType := workflowTypeFor(iss)

	w.metrics.claims.Inc()
	w.metrics.inFlight.Inc()
	defer w.metrics.inFlight.Dec()

	w.logger.Info("Claimed issue",
		"issue_id", iss.ID,
		"worker_id", w.cfg.WorkerID,
		"workflow_type", workflowType,
		"adw_id", adwID)

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.WorkflowTimeout)
	defer cancel()

	start := time.Now()
	err := w.spawner.Spawn(runCtx, SpawnParams{
		ADWID:        adwID,
		WorkflowType: workflowType,
		IssueID:      iss.ID,
	})
	w.metrics.duration.Observe(time.Since(start).Seconds())

	// Status updates survive run-context death; the claim is released
	// even when the workflow timed out or the worker is shutting down.
	if err != nil {
		w.logger.Warn("Workflow failed, requeueing issue",
			"issue_id", iss.ID,
			"adw_id", adwID,
			"duration", time.Since(start),
			"error", err)
		w.metrics.requeues.Inc()
		if uerr := w.store.UpdateStatus(context.Background(), iss.ID, issue.StatusPending); uerr != nil {
			w.logger.Error("Requeue failed", "issue_id", iss.ID, "error", uerr)
		}
		return
	}

	w.logger.Info("Workflow completed",
		"issue_id", iss.ID,
		"adw_id", adwID,
		"duration", time.Since(start))
	w.metrics.completions.Inc()
	if uerr := w.store.UpdateStatus(context.Background(), iss.ID, issue.StatusCompleted); uerr != nil {
		w.logger.Error("Completion update failed", "issue_id", iss.ID, "error", uerr)
	}
}

// adwIDFor generates the run identifier. Patch issues carrying their
// parent's adw_id run under the derived patch identifier so the store
// resolves shared artifacts from the parent.
func (w *Worker) adwIDFor(iss *issue.Issue) string {
	if iss.Type == issue.TypePatch && iss.ADWID != "" {
		return pipeline.PatchADWID(iss.ADWID)
	}
	return pipeline.NewADWID()
}

func workflowTypeFor(iss *issue.Issue) string {
	if iss.Type == issue.TypePatch {
		return pipeline.WorkflowPatch
	}
	return pipeline.WorkflowMain
}

func (w *Worker) sleep(ctx context.Context) {
	t := time.NewTimer(w.cfg.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-w.stopCh:
	case <-t.C:
	}
}

func (w *Worker) serveMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", w.metrics.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: w.cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Warn("Metrics endpoint failed", "addr", w.cfg.MetricsAddr, "error", err)
		}
	}()
	w.logger.Info("Metrics endpoint listening", "addr", w.cfg.MetricsAddr)
	return srv
}
