package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"feesweep/pkg/config"
	"feesweep/pkg/logger"
	"feesweep/pkg/sol"
	"feesweep/pkg/subscription"
	"feesweep/pkg/swap"
	"feesweep/pkg/sweep"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		log.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	opts := []sol.Option{
		sol.WithLogger(log.Named("rpc")),
		sol.WithConfirmTimeout(cfg.ConfirmTimeout),
		sol.WithJitoUUID(cfg.JitoUUID),
	}

	wsClient, err := subscription.NewWebSocketClient(ctx, cfg.WSEndpoint, log)
	if err != nil {
		log.Warn("websocket unavailable, confirming by polling", zap.String("url", cfg.WSEndpoint), zap.Error(err))
	} else {
		defer wsClient.Close()
		opts = append(opts, sol.WithSignatureWaiter(wsClient))
	}

	rpcPool, err := sol.NewRPCPool(ctx, cfg.RPCEndpoints, cfg.JitoRPC, cfg.RPCRateLimit, opts...)
	if err != nil {
		log.Fatal("failed to create RPC pool", zap.Error(err))
	}
	log.Info("initialized RPC pool",
		zap.Int("endpoints", rpcPool.Size()),
		zap.Bool("jito", cfg.JitoRPC != ""))

	aggregator := swap.NewClient(cfg.SwapHost, log)
	job := sweep.New(cfg, rpcPool, aggregator, log)

	if cfg.StatusAddr != "" {
		server := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           newStatusHandler(job, cfg.Mint.String()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Info("status server listening", zap.String("addr", cfg.StatusAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server error", zap.Error(err))
			}
		}()

		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn("status server shutdown error", zap.Error(err))
			}
		}()
	}

	if err := job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("fee sweeper exited", zap.Error(err))
	}
}
