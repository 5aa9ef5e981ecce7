package main

import (
	"context"
	_ "embed"
	stderrors "errors"
	"flag"
	"os"
	"sync"
	"time"

	"orderdag/internal/audit"
	"orderdag/internal/bus"
	"orderdag/internal/chaos"
	"orderdag/internal/executor"
	"orderdag/internal/graph"
	"orderdag/internal/obs"
	"orderdag/internal/ops"
	"orderdag/internal/order"
	"orderdag/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

//go:embed testdata/demo.json
var demoWorkload []byte

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	workloadPath := flag.String("workload", "", "Path to JSON order workload (default: built-in demo)")
	reportPath := flag.String("report", "", "Run report output, overrides audit.reportPath")
	flag.Parse()

	loaded, err := loadConfig(*configPath)
	if err != nil {
		logs.Errorf("config load failed, err: %+v", err)
		os.Exit(1)
	}
	if *reportPath != "" {
		loaded.ReportPath = *reportPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := run(ctx, loaded, *workloadPath); err != nil {
		logs.Errorf("run failed, err: %+v", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return ops.Default(), nil
	}
	return ops.Load(path)
}

func run(ctx context.Context, loaded ops.Loaded, workloadPath string) error {
	stopProfiler, err := startProfiler(loaded.Profiling)
	if err != nil {
		return err
	}
	defer stopProfiler()

	workload, err := loadWorkload(workloadPath)
	if err != nil {
		return err
	}

	store := graph.NewStore()
	if _, err := order.Enqueue(store, workload.Orders); err != nil {
		return err
	}

	recorder, closeRecorder, err := buildRecorder(ctx, loaded)
	if err != nil {
		return err
	}
	defer closeRecorder()

	metrics := obs.NewMetrics()
	channel := bus.NewChannel(loaded.Notification.Capacity, loaded.Notification.Policy, metrics)

	// The consumer outlives the run so that queued notifications still go out
	// after a shutdown signal.
	consumerCtx, stopConsumer := context.WithCancel(context.WithoutCancel(ctx))
	defer stopConsumer()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		channel.Run(consumerCtx, buildSink(loaded.Notification))
	}()

	exec := executor.New(channel,
		executor.WithMetrics(metrics),
		executor.WithCategory(loaded.Notification.Category),
		executor.WithMaxConcurrency(loaded.Executor.MaxConcurrency),
		executor.WithLevelTimeout(loaded.Executor.LevelTimeout),
	)
	var strategy executor.Strategy = order.NewPaperStrategy(loaded.PaperLatency)
	if loaded.Chaos.Enabled() {
		strategy, err = chaos.NewEngine(loaded.Chaos, strategy)
		if err != nil {
			return err
		}
		logs.Infof("chaos enabled, fail rate: %.2f, panic rate: %.2f, max delay: %s",
			loaded.Chaos.FailRate, loaded.Chaos.PanicRate, loaded.Chaos.MaxDelay)
	}

	logs.Infof("processing %d orders, policy: %s, capacity: %d", store.Len(), channel.Policy(), channel.Cap())
	summary, runErr := exec.Process(ctx, store, strategy)
	if runErr != nil && !stderrors.Is(runErr, context.Canceled) {
		channel.Close()
		wg.Wait()
		return runErr
	}

	channel.Close()
	wg.Wait()

	if recorder != nil {
		report := audit.NewReport(summary, store.Snapshot(), time.Now())
		if err := recorder.Record(context.WithoutCancel(ctx), report); err != nil {
			logs.Errorf("record run %d, err: %+v", summary.RunID, err)
		}
	}

	snapshot := metrics.Snapshot()
	logs.Infof("run %d: %s, levels: %d, notifications sent: %d dropped: %d delivered: %d failed: %d, level latency: %+v",
		summary.RunID, summary, summary.Levels, snapshot.NotificationsSent, snapshot.NotificationsDropped,
		snapshot.Delivered, snapshot.DeliveryFailed, snapshot.LevelLatency)
	return runErr
}

func loadWorkload(path string) (order.Workload, error) {
	if path == "" {
		return order.DecodeWorkload(demoWorkload)
	}
	return order.LoadWorkload(path)
}

func buildSink(cfg ops.Notification) bus.Sink {
	if cfg.Sink == ops.SinkWebhook {
		return bus.NewWebhookSink(cfg.WebhookURL, nil)
	}
	return bus.LogSink{}
}

func buildRecorder(ctx context.Context, loaded ops.Loaded) (audit.Recorder, func(), error) {
	var recorders audit.Multi
	closeFn := func() {}

	if loaded.ReportPath != "" {
		recorders = append(recorders, audit.NewFileRecorder(loaded.ReportPath))
	}
	if loaded.Postgres != nil {
		client, err := conn.New(ctx, *loaded.Postgres)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() {
			if err := client.Close(); err != nil {
				logs.Errorf("close postgres, err: %+v", err)
			}
		}
		pg := audit.NewPostgresRecorder(client.DB())
		if err := pg.Migrate(ctx); err != nil {
			closeFn()
			return nil, func() {}, err
		}
		recorders = append(recorders, pg)
	}

	if len(recorders) == 0 {
		return nil, closeFn, nil
	}
	return recorders, closeFn, nil
}

func startProfiler(cfg ops.ProfilingConfig) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Tags:            cfg.Tags,
		Logger:          profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "start pyroscope")
	}
	return func() {
		_ = profiler.Stop()
	}, nil
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{})  { logs.Infof(format, args...) }
func (profilerLogger) Debugf(_ string, _ ...interface{})         {}
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
