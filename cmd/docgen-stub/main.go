package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/GoSim-25-26J-441/docgen-client/config"
	"github.com/GoSim-25-26J-441/docgen-client/internal/bootstrap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		klog.Fatalf("failed to load config: %v", err)
	}
	bootstrap.SetupLogging(cfg.App.Verbosity())
	defer klog.Flush()

	srv := bootstrap.BuildStubServer(cfg)

	go func() {
		klog.Infof("docgen stub listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Fatalf("stub server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		klog.Errorf("stub shutdown: %v", err)
	}
	klog.Info("docgen stub stopped")
}
