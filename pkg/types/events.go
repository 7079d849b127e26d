package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerProvisionedEvent 客户在网关创建成功后触发
// Source 标识来源：队列消息为 "intake"，同步API为 "api"
type CustomerProvisionedEvent struct {
	CustomerID         string    `json:"customer_id"`
	ExternalCustomerID string    `json:"external_customer_id"`
	Email              string    `json:"email"`
	Source             string    `json:"source"`
	CreatedAt          time.Time `json:"created_at"`
}

type CheckoutCreatedEvent struct {
	SessionID          string          `json:"session_id"`
	ExternalCustomerID string          `json:"external_customer_id"`
	ExternalProductID  string          `json:"external_product_id"`
	Quantity           int64           `json:"quantity"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	CreatedAt          time.Time       `json:"created_at"`
}
