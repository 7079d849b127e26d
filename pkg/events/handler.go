package events

import "github.com/flaboy/aira-payments/pkg/types"

type EventHandler interface {
	OnCustomerProvisioned(event *types.CustomerProvisionedEvent) error
	OnCheckoutCreated(event *types.CheckoutCreatedEvent) error
}

var handler EventHandler

func SetEventHandler(h EventHandler) {
	handler = h
}

func EmitCustomerProvisioned(event *types.CustomerProvisionedEvent) error {
	if handler != nil {
		return handler.OnCustomerProvisioned(event)
	}
	return nil
}

func EmitCheckoutCreated(event *types.CheckoutCreatedEvent) error {
	if handler != nil {
		return handler.OnCheckoutCreated(event)
	}
	return nil
}
