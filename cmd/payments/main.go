package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cast"

	"github.com/flaboy/aira-payments/pkg/commence"
	"github.com/flaboy/aira-payments/pkg/config"
)

func main() {
	runtime, err := commence.Start(readCfg())
	if err != nil {
		log.Fatalf("start error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runtime.Consumer.Run(ctx); err != nil {
		log.Fatalf("consumer error: %v", err)
	}
}

// readCfg 只读环境变量，缺省值由配置结构体的default标签补齐
func readCfg() *config.CommenceConfig {
	cfg := &config.CommenceConfig{}
	cfg.Stripe.SecretKey = getenv("STRIPE_SECRET_KEY")
	cfg.Stripe.SuccessURL = getenv("STRIPE_SUCCESS_URL")
	cfg.Stripe.CancelURL = getenv("STRIPE_CANCEL_URL")
	cfg.Broker.URI = getenv("BROKER_URI")
	cfg.Broker.Queue = getenv("BROKER_QUEUE")
	cfg.Broker.Prefetch = cast.ToInt(getenv("BROKER_PREFETCH"))
	return cfg
}

func getenv(k string) string {
	return strings.TrimSpace(os.Getenv(k))
}
