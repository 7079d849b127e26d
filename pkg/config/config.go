package config

import (
	"reflect"

	"github.com/spf13/cast"
)

type CommenceConfig struct {
	// 支付网关配置
	Stripe struct {
		SecretKey  string `cfg:"SECRET_KEY"`
		SuccessURL string `cfg:"SUCCESS_URL" default:"http://localhost:4200/payment-success?success=true"`
		CancelURL  string `cfg:"CANCEL_URL" default:"http://localhost:4200/cart?canceled=true"`
	} `cfg:"STRIPE"`

	// 消息队列配置
	Broker struct {
		URI      string `cfg:"URI"`
		Queue    string `cfg:"QUEUE" default:"payments_queue-v2"`
		Prefetch int    `cfg:"PREFETCH" default:"8"`
	} `cfg:"BROKER"`
}

var Config *CommenceConfig

// ApplyDefaults 把default标签填充到零值字段上，已赋值的字段不动
func (c *CommenceConfig) ApplyDefaults() {
	applyDefaults(reflect.ValueOf(c).Elem())
}

func applyDefaults(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.Struct {
			applyDefaults(f)
			continue
		}
		def := t.Field(i).Tag.Get("default")
		if def == "" || !f.IsZero() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(def)
		case reflect.Int:
			f.SetInt(int64(cast.ToInt(def)))
		}
	}
}
