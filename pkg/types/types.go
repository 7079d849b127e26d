package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`    // 元为单位，网关适配层负责转换为分
	Currency          string          `json:"currency"` // 为空时默认 usd
	ExternalProductID string          `json:"externalProductId"`
	ImageURL          string          `json:"imageUrl"`
}

type CreateProductResponse struct {
	ID          string          `json:"id"`
	PriceID     string          `json:"priceId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"createdAt"`
	ImageURL    string          `json:"imageUrl"`
}

type ProductListResponse struct {
	ID                string          `json:"id"`
	PriceID           string          `json:"priceId"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency"`
	CreatedAt         time.Time       `json:"createdAt"`
	ImageURL          string          `json:"imageUrl"`
	ExternalProductID string          `json:"externalProductId"`
}

// CreateCustomerRequest 同步API的请求体，同时也是队列中客户开通消息的格式
// 消息体字段名大小写不敏感，缺失字段按空串处理
type CreateCustomerRequest struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	ExternalCustomerID string `json:"externalCustomerId"`
	Phone              string `json:"phone,omitempty"`
	Description        string `json:"description,omitempty"`
}

type CreateCustomerResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	ExternalCustomerID string    `json:"externalCustomerId"`
	Phone              string    `json:"phone,omitempty"`
	Description        string    `json:"description,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

type CustomerResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	ExternalCustomerID string    `json:"externalCustomerId"`
	Phone              string    `json:"phone,omitempty"`
	Description        string    `json:"description,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

type CreateCheckoutRequest struct {
	CustomerID string `json:"customerId"` // 外部客户ID
	ProductID  string `json:"productId"`  // 外部商品ID
	Quantity   int64  `json:"quantity"`
}

type CreateCheckoutResponse struct {
	SessionID  string          `json:"sessionId"`
	URL        string          `json:"url"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	CustomerID string          `json:"customerId"`
	ProductID  string          `json:"productId"`
	Quantity   int64           `json:"quantity"`
}

// CreatePaymentRequest 这里的ProductID是网关原生ID，不是外部ID
type CreatePaymentRequest struct {
	ProductID string `json:"productId"`
}

type CreatePaymentResponse struct {
	ID           string          `json:"id"`
	ClientSecret string          `json:"clientSecret"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
}

type PaymentStatusResponse struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"` // 网关侧状态枚举，本系统透传不解释
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	// CreatedAt/UpdatedAt 是本地时间戳，非网关权威时间，不可用于事件排序
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
