// Command pastebin-reconciler runs the background jobs that keep the paste
// store and the search index converging. In scheduled mode it runs the resave
// and peeling-conversion jobs on cron schedules and serves metrics until
// terminated; with -run-once it runs the selected job a single time and exits.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/davidwtbuxton/pastebin/pkg/config"
	"github.com/davidwtbuxton/pastebin/pkg/observability"
	"github.com/davidwtbuxton/pastebin/pkg/reconcile"
	"github.com/davidwtbuxton/pastebin/pkg/search"
	"github.com/davidwtbuxton/pastebin/pkg/storage"
)

var (
	runOnce = flag.Bool("run-once", false, "Run the selected job once and exit")
	jobName = flag.String("job", "all", "Job to run with -run-once: resave, convert, or all")
	initDB  = flag.Bool("init-schema", false, "Create database tables before starting")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	db, err := sql.Open(cfg.DB.Driver, cfg.DB.URL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("failed to ping database")
	}

	blobs, err := storage.NewFileSystemBlobStore(cfg.DB.FilesRoot)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open blob store")
	}

	sqlStore := storage.NewSQLStore(db, blobs)
	if *initDB {
		if err := sqlStore.InitSchema(context.Background()); err != nil {
			logrus.WithError(err).Fatal("failed to initialize schema")
		}
	}

	var store storage.EntityStore = sqlStore
	if cfg.Cache.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logrus.WithError(err).Fatal("invalid redis URL")
		}
		store = storage.NewCachedStore(sqlStore, cfg.Cache.Size, cfg.Cache.TTL, redis.NewClient(opts))
	}

	index, err := search.OpenIndex(cfg.Search.IndexPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open search index")
	}
	defer index.Close()

	metrics := observability.NewMetrics()
	resave := reconcile.NewResaveJob(store, blobs, index, cfg.Jobs.Workers, cfg.Jobs.ScanBatchSize, metrics)
	convert := reconcile.NewConvertPeelingsJob(store, cfg.Jobs.Workers, cfg.Jobs.ScanBatchSize, metrics)

	if *runOnce {
		if err := runJobsOnce(*jobName, resave, convert); err != nil {
			logrus.WithError(err).Fatal("job failed")
		}
		return
	}

	c := cron.New()
	if cfg.Jobs.ResaveSchedule != "" {
		if _, err := c.AddFunc(cfg.Jobs.ResaveSchedule, func() { runResave(resave) }); err != nil {
			logrus.WithError(err).Fatal("failed to schedule resave job")
		}
	}
	if cfg.Jobs.ConvertSchedule != "" {
		if _, err := c.AddFunc(cfg.Jobs.ConvertSchedule, func() { runConvert(convert) }); err != nil {
			logrus.WithError(err).Fatal("failed to schedule conversion job")
		}
	}

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("metrics server failed")
		}
	}()

	c.Start()
	logrus.WithFields(logrus.Fields{
		"resave_schedule":  cfg.Jobs.ResaveSchedule,
		"convert_schedule": cfg.Jobs.ConvertSchedule,
		"metrics_addr":     cfg.MetricsAddr,
	}).Info("reconciler started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logrus.Info("shutting down gracefully")

	// Let any in-flight job run finish before exiting.
	<-c.Stop().Done()
	if err := metricsSrv.Shutdown(context.Background()); err != nil {
		logrus.WithError(err).Warn("metrics server shutdown failed")
	}

	logrus.Info("reconciler stopped")
}

func runJobsOnce(name string, resave *reconcile.ResaveJob, convert *reconcile.ConvertPeelingsJob) error {
	switch name {
	case "resave":
		runResave(resave)
	case "convert":
		runConvert(convert)
	case "all":
		// Convert first so freshly converted pastes get indexed in the
		// same invocation.
		runConvert(convert)
		runResave(resave)
	default:
		return errors.New("unknown job: " + name)
	}
	return nil
}

func runResave(job *reconcile.ResaveJob) {
	if _, err := job.Run(context.Background()); err != nil {
		logrus.WithError(err).Error("resave job failed")
	}
}

func runConvert(job *reconcile.ConvertPeelingsJob) {
	if _, err := job.Run(context.Background()); err != nil {
		logrus.WithError(err).Error("peeling conversion job failed")
	}
}
