package payments

import (
	"context"
	"log/slog"
	"net/mail"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flaboy/aira-payments/pkg/errors"
	"github.com/flaboy/aira-payments/pkg/events"
	"github.com/flaboy/aira-payments/pkg/gateway"
	"github.com/flaboy/aira-payments/pkg/money"
	"github.com/flaboy/aira-payments/pkg/types"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,19}$`)

// Service 编排层：组合查找与网关调用，负责金额计算和请求组装
// 网关是支付状态的唯一权威，本层不落任何本地状态
type Service struct {
	gw gateway.Gateway
}

func NewService(gw gateway.Gateway) *Service {
	return &Service{gw: gw}
}

func (s *Service) CreateProduct(ctx context.Context, req types.CreateProductRequest) (*types.CreateProductResponse, error) {
	const op = "payments.CreateProduct"
	if req.Name == "" {
		return nil, errors.Validation(op, "name is required")
	}
	if req.ExternalProductID == "" {
		return nil, errors.Validation(op, "externalProductId is required")
	}
	if !req.Price.IsPositive() {
		return nil, errors.Validation(op, "price must be greater than zero")
	}
	// 金额精度在任何网关调用之前校验
	if _, err := money.ToMinorUnits(req.Price); err != nil {
		return nil, errors.Validation(op, err.Error())
	}
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	// 先查后建：同一外部ID已存在时直接返回既有商品
	existing, err := s.gw.FindProductByExternalID(ctx, req.ExternalProductID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Info("[Payments] Product already exists, skipping create",
			"externalProductId", req.ExternalProductID, "productId", existing.ID)
		return &types.CreateProductResponse{
			ID:          existing.ID,
			PriceID:     existing.PriceID,
			Name:        existing.Name,
			Description: existing.Description,
			Price:       existing.Price,
			Currency:    existing.Currency,
			CreatedAt:   existing.CreatedAt,
			ImageURL:    existing.ImageURL,
		}, nil
	}

	product, err := s.gw.CreateProduct(ctx, gateway.ProductSpec{
		Name:              req.Name,
		Description:       req.Description,
		ExternalProductID: req.ExternalProductID,
		ImageURL:          req.ImageURL,
	})
	if err != nil {
		return nil, err
	}

	price, err := s.gw.CreatePrice(ctx, gateway.PriceSpec{
		ProductID: product.ID,
		Amount:    req.Price,
		Currency:  currency,
	})
	if err != nil {
		// 价格创建失败后商品会残留在网关侧，没有补偿删除，
		// 记录下来而不是悄悄吞掉
		slog.Error("[Payments] Price creation failed, product left orphaned in gateway",
			"productId", product.ID, "externalProductId", req.ExternalProductID, "error", err)
		return nil, err
	}

	slog.Info("[Payments] Product created",
		"productId", product.ID, "priceId", price.ID, "externalProductId", req.ExternalProductID)

	return &types.CreateProductResponse{
		ID:          product.ID,
		PriceID:     price.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       req.Price,
		Currency:    currency,
		CreatedAt:   product.CreatedAt,
		ImageURL:    req.ImageURL,
	}, nil
}

func (s *Service) GetAllProducts(ctx context.Context) ([]types.ProductListResponse, error) {
	products, err := s.gw.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.ProductListResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productToListResponse(p))
	}
	return out, nil
}

func (s *Service) GetProductByExternalID(ctx context.Context, externalProductID string) (*types.ProductListResponse, error) {
	const op = "payments.GetProductByExternalID"
	if externalProductID == "" {
		return nil, errors.Validation(op, "externalProductId is required")
	}
	product, err := s.gw.FindProductByExternalID(ctx, externalProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.NotFound(op, "product with external ID '"+externalProductID+"' not found")
	}
	resp := productToListResponse(product)
	return &resp, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req types.CreateCustomerRequest) (*types.CreateCustomerResponse, error) {
	const op = "payments.CreateCustomer"
	if req.ExternalCustomerID == "" {
		return nil, errors.Validation(op, "externalCustomerId is required")
	}
	if req.Name == "" {
		return nil, errors.Validation(op, "name is required")
	}
	if req.Email == "" {
		return nil, errors.Validation(op, "email is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, errors.Validation(op, "email must be a valid email address")
	}
	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		return nil, errors.Validation(op, "phone must be a valid phone number")
	}

	// 先查后建，保证同一外部ID至多一个客户（存在狭窄竞态窗口，
	// 网关侧幂等键兜底）
	existing, err := s.gw.FindCustomerByExternalID(ctx, req.ExternalCustomerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Info("[Payments] Customer already exists, skipping create",
			"externalCustomerId", req.ExternalCustomerID, "customerId", existing.ID)
		return customerToCreateResponse(existing), nil
	}

	customer, err := s.gw.CreateCustomer(ctx, gateway.CustomerSpec{
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		Description:        req.Description,
		ExternalCustomerID: req.ExternalCustomerID,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[Payments] Customer created",
		"customerId", customer.ID, "externalCustomerId", req.ExternalCustomerID)
	return customerToCreateResponse(customer), nil
}

func (s *Service) GetCustomer(ctx context.Context, externalCustomerID string) (*types.CustomerResponse, error) {
	const op = "payments.GetCustomer"
	if externalCustomerID == "" {
		return nil, errors.Validation(op, "externalCustomerId is required")
	}
	customer, err := s.gw.FindCustomerByExternalID(ctx, externalCustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, errors.NotFound(op, "customer with external ID '"+externalCustomerID+"' not found")
	}
	return &types.CustomerResponse{
		ID:                 customer.ID,
		Name:               customer.Name,
		Email:              customer.Email,
		ExternalCustomerID: customer.ExternalCustomerID,
		Phone:              customer.Phone,
		Description:        customer.Description,
		CreatedAt:          customer.CreatedAt,
	}, nil
}

func (s *Service) CreateCheckout(ctx context.Context, req types.CreateCheckoutRequest) (*types.CreateCheckoutResponse, error) {
	const op = "payments.CreateCheckout"
	if req.CustomerID == "" {
		return nil, errors.Validation(op, "customerId is required")
	}
	if req.ProductID == "" {
		return nil, errors.Validation(op, "productId is required")
	}
	// 数量在任何解析和网关调用之前校验
	if req.Quantity <= 0 {
		return nil, errors.Validation(op, "quantity must be greater than zero")
	}

	customer, err := s.gw.FindCustomerByExternalID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, errors.NotFound(op, "customer with external ID '"+req.CustomerID+"' not found")
	}

	product, err := s.gw.FindProductByExternalID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.NotFound(op, "product with external ID '"+req.ProductID+"' not found")
	}

	amount := product.Price.Mul(decimal.NewFromInt(req.Quantity))

	session, err := s.gw.CreateCheckoutSession(ctx, gateway.CheckoutSpec{
		CustomerID:         customer.ID,
		PriceID:            product.PriceID,
		Quantity:           req.Quantity,
		ExternalCustomerID: req.CustomerID,
		ExternalProductID:  req.ProductID,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[Payments] Checkout session created",
		"sessionId", session.ID, "externalCustomerId", req.CustomerID,
		"externalProductId", req.ProductID, "amount", amount.String())

	if err := events.EmitCheckoutCreated(&types.CheckoutCreatedEvent{
		SessionID:          session.ID,
		ExternalCustomerID: req.CustomerID,
		ExternalProductID:  req.ProductID,
		Quantity:           req.Quantity,
		Amount:             amount,
		Currency:           product.Currency,
		CreatedAt:          time.Now().UTC(),
	}); err != nil {
		slog.Error("[Payments] Checkout event handler failed", "sessionId", session.ID, "error", err)
	}

	return &types.CreateCheckoutResponse{
		SessionID:  session.ID,
		URL:        session.URL,
		Amount:     amount,
		Currency:   product.Currency,
		Status:     session.Status,
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
	}, nil
}

func (s *Service) CreatePaymentIntent(ctx context.Context, req types.CreatePaymentRequest) (*types.CreatePaymentResponse, error) {
	const op = "payments.CreatePaymentIntent"
	if req.ProductID == "" {
		return nil, errors.Validation(op, "productId is required")
	}

	price, err := s.gw.ActivePrice(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, errors.NotFound(op, "no active price found for product "+req.ProductID)
	}

	intent, err := s.gw.CreatePaymentIntent(ctx, gateway.PaymentIntentSpec{
		Amount:    price.Amount,
		Currency:  price.Currency,
		ProductID: req.ProductID,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[Payments] Payment intent created",
		"intentId", intent.ID, "productId", req.ProductID, "amount", intent.Amount.String())

	return &types.CreatePaymentResponse{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
		Status:       intent.Status,
	}, nil
}

func (s *Service) GetPaymentStatus(ctx context.Context, paymentIntentID string) (*types.PaymentStatusResponse, error) {
	const op = "payments.GetPaymentStatus"
	if paymentIntentID == "" {
		return nil, errors.Validation(op, "paymentIntentId is required")
	}
	intent, err := s.gw.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	return &types.PaymentStatusResponse{
		ID:       intent.ID,
		Status:   intent.Status,
		Amount:   intent.Amount,
		Currency: intent.Currency,
		// 网关的intent对象不带更新时间，这里只能给本地时间
		CreatedAt: time.Now().UTC(),
		UpdatedAt: nil,
	}, nil
}

func productToListResponse(p *gateway.Product) types.ProductListResponse {
	return types.ProductListResponse{
		ID:                p.ID,
		PriceID:           p.PriceID,
		Name:              p.Name,
		Description:       p.Description,
		Price:             p.Price,
		Currency:          p.Currency,
		CreatedAt:         p.CreatedAt,
		ImageURL:          p.ImageURL,
		ExternalProductID: p.ExternalProductID,
	}
}

func customerToCreateResponse(c *gateway.Customer) *types.CreateCustomerResponse {
	return &types.CreateCustomerResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Email:              c.Email,
		ExternalCustomerID: c.ExternalCustomerID,
		Phone:              c.Phone,
		Description:        c.Description,
		CreatedAt:          c.CreatedAt,
	}
}
