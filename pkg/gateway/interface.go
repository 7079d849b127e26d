package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 外部ID以metadata形式存储在网关资源上，作为稳定的关联键
const (
	MetaExternalCustomerID = "externalCustomerId"
	MetaExternalProductID  = "externalProductId"
	MetaImageURL           = "imageUrl"
	MetaQuantity           = "quantity"
	MetaProductID          = "product_id"
)

type Customer struct {
	ID                 string
	Name               string
	Email              string
	Phone              string
	Description        string
	ExternalCustomerID string
	CreatedAt          time.Time
}

// Product 商品及其当前生效的Price，本系统视角下一个商品只有一个生效价格
type Product struct {
	ID                string
	PriceID           string
	Name              string
	Description       string
	Price             decimal.Decimal // 元为单位
	Currency          string
	ImageURL          string
	ExternalProductID string
	CreatedAt         time.Time
	Active            bool
}

type Price struct {
	ID       string
	Amount   decimal.Decimal
	Currency string
	Active   bool
}

type CheckoutSession struct {
	ID     string
	URL    string
	Status string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
	Status       string // 网关侧枚举，透传
}

type CustomerSpec struct {
	Name               string
	Email              string
	Phone              string
	Description        string
	ExternalCustomerID string
}

type ProductSpec struct {
	Name              string
	Description       string
	ExternalProductID string
	ImageURL          string
}

type PriceSpec struct {
	ProductID string
	Amount    decimal.Decimal
	Currency  string
}

type CheckoutSpec struct {
	CustomerID         string // 网关客户ID
	PriceID            string
	Quantity           int64
	ExternalCustomerID string
	ExternalProductID  string
}

type PaymentIntentSpec struct {
	Amount    decimal.Decimal
	Currency  string
	ProductID string
}

// Gateway 所有网关调用的唯一出口，实现方负责把网关错误
// 翻译成 errors.KindGateway，把金额在元/分之间转换
// 各Find方法未命中时返回 (nil, nil)，只有传输/网关故障才返回错误
type Gateway interface {
	CreateCustomer(ctx context.Context, spec CustomerSpec) (*Customer, error)
	FindCustomerByExternalID(ctx context.Context, externalID string) (*Customer, error)

	// CreateProduct 只创建商品资源，价格由 CreatePrice 单独创建
	CreateProduct(ctx context.Context, spec ProductSpec) (*Product, error)
	CreatePrice(ctx context.Context, spec PriceSpec) (*Price, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	FindProductByExternalID(ctx context.Context, externalID string) (*Product, error)
	// ActivePrice 返回商品当前生效的价格，没有时返回 (nil, nil)
	ActivePrice(ctx context.Context, productID string) (*Price, error)

	CreateCheckoutSession(ctx context.Context, spec CheckoutSpec) (*CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, spec PaymentIntentSpec) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
}
