package commence

import (
	"fmt"

	"github.com/flaboy/aira-payments/pkg/config"
	"github.com/flaboy/aira-payments/pkg/events"
	stripegw "github.com/flaboy/aira-payments/pkg/gateway/stripe"
	"github.com/flaboy/aira-payments/pkg/intake"
	"github.com/flaboy/aira-payments/pkg/payments"
)

// Runtime 启动后的服务句柄
type Runtime struct {
	Payments *payments.Service
	Consumer *intake.Consumer
}

// Start 装配服务组件
func Start(cfg *config.CommenceConfig) (*Runtime, error) {
	cfg.ApplyDefaults()
	if cfg.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if cfg.Broker.URI == "" {
		return nil, fmt.Errorf("broker URI is required")
	}
	if cfg.Broker.Queue == "" {
		return nil, fmt.Errorf("broker queue name is required")
	}
	config.Config = cfg

	gw := stripegw.New(cfg.Stripe.SecretKey, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)
	svc := payments.NewService(gw)
	consumer := intake.New(cfg.Broker.URI, cfg.Broker.Queue, cfg.Broker.Prefetch, svc)

	return &Runtime{
		Payments: svc,
		Consumer: consumer,
	}, nil
}

// RegisterEventHandler 注册业务系统的事件处理器
func RegisterEventHandler(handler events.EventHandler) {
	events.SetEventHandler(handler)
}
