package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"github.com/clipforge/clipforge/internal/alerts"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/convert"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/middleware"
	"github.com/clipforge/clipforge/internal/routes"
	"github.com/clipforge/clipforge/internal/server"
	"github.com/clipforge/clipforge/internal/split"
	"github.com/clipforge/clipforge/internal/transcode"
	"github.com/clipforge/clipforge/internal/upload"
	"github.com/clipforge/clipforge/internal/util"
)

func main() {
	godotenv.Load()
	config.Load()
	logger.Setup(config.EnvMode)

	if err := util.EnsureDirs(config.Dirs()...); err != nil {
		logger.Log.Fatalf("Failed to create data directories: %v", err)
	}

	// Two instances sweeping the same data dir would delete each other's
	// files mid-task.
	lock := flock.New(filepath.Join(config.TempDir, "clipforge.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		logger.Log.Fatalf("Failed to acquire instance lock: %v", err)
	}
	if !locked {
		logger.Log.Fatal("Another instance is already running against this data directory")
	}
	defer lock.Unlock()

	runner := transcode.NewRunner(config.FFmpegPath)
	prober := transcode.NewProber(config.FFprobePath)

	uploads := upload.NewAssembler(config.TempDir, config.UploadDir)
	converts := convert.NewOrchestrator(runner, prober, config.OutputDir)
	splits := split.NewOrchestrator(runner, config.OutputDir)

	stopUploadSweep := uploads.StartSweep(config.SweepInterval, config.FileRetention)
	stopConvertSweep := converts.StartSweep(config.SweepInterval, config.FileRetention)
	defer stopUploadSweep()
	defer stopConvertSweep()

	middleware.StartRateLimitCleanup()

	srv := server.New(&routes.Deps{
		Uploads:  uploads,
		Converts: converts,
		Splits:   splits,
	})

	server.PrintBanner()
	logger.Log.Infof("[Server] Listening on :%s (%s)", config.Port, config.EnvMode)
	alerts.ServerStarted()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("[Server] Shutting down...")
	alerts.ServerStopping()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Warnf("[Server] Forced shutdown: %v", err)
	}
	logger.Log.Info("[Server] Stopped")
}
