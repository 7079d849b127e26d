package stripe

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/flaboy/aira-payments/pkg/errors"
	"github.com/flaboy/aira-payments/pkg/gateway"
	"github.com/flaboy/aira-payments/pkg/money"
)

// 查找外部ID时只扫描第一页，已知的规模上限
const listPageSize = 100

type Gateway struct {
	api        *client.API
	successURL string
	cancelURL  string
}

func New(secretKey, successURL, cancelURL string) *Gateway {
	return &Gateway{
		api:        client.New(secretKey, nil),
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// wrapErr 把网关错误统一翻译为 KindGateway，保留网关侧的错误文本
func wrapErr(op string, err error) error {
	msg := err.Error()
	var sErr *stripe.Error
	if stderrors.As(err, &sErr) && sErr.Msg != "" {
		msg = sErr.Msg
	}
	return errors.Gateway(op, fmt.Sprintf("gateway operation failed: %s", msg), err)
}

func (g *Gateway) CreateCustomer(ctx context.Context, spec gateway.CustomerSpec) (*gateway.Customer, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Name:   stripe.String(spec.Name),
		Email:  stripe.String(spec.Email),
	}
	if spec.Phone != "" {
		params.Phone = stripe.String(spec.Phone)
	}
	if spec.Description != "" {
		params.Description = stripe.String(spec.Description)
	}
	params.AddMetadata(gateway.MetaExternalCustomerID, spec.ExternalCustomerID)
	// 以外部ID为幂等键，同一外部ID的并发重复创建由网关合并
	params.SetIdempotencyKey("customer-create-" + spec.ExternalCustomerID)

	c, err := g.api.Customers.New(params)
	if err != nil {
		return nil, wrapErr("stripe.CreateCustomer", err)
	}
	return customerFromStripe(c), nil
}

func (g *Gateway) FindCustomerByExternalID(ctx context.Context, externalID string) (*gateway.Customer, error) {
	params := &stripe.CustomerListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(listPageSize), Single: true},
	}
	iter := g.api.Customers.List(params)
	for iter.Next() {
		c := iter.Customer()
		if c.Metadata[gateway.MetaExternalCustomerID] == externalID {
			return customerFromStripe(c), nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("stripe.FindCustomerByExternalID", err)
	}
	return nil, nil
}

func (g *Gateway) CreateProduct(ctx context.Context, spec gateway.ProductSpec) (*gateway.Product, error) {
	params := &stripe.ProductParams{
		Params: stripe.Params{Context: ctx},
		Name:   stripe.String(spec.Name),
	}
	if spec.Description != "" {
		params.Description = stripe.String(spec.Description)
	}
	params.AddMetadata(gateway.MetaExternalProductID, spec.ExternalProductID)
	params.AddMetadata(gateway.MetaImageURL, spec.ImageURL)
	params.SetIdempotencyKey("product-create-" + spec.ExternalProductID)

	p, err := g.api.Products.New(params)
	if err != nil {
		return nil, wrapErr("stripe.CreateProduct", err)
	}
	return &gateway.Product{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		ImageURL:          spec.ImageURL,
		ExternalProductID: spec.ExternalProductID,
		CreatedAt:         time.Unix(p.Created, 0).UTC(),
		Active:            p.Active,
	}, nil
}

func (g *Gateway) CreatePrice(ctx context.Context, spec gateway.PriceSpec) (*gateway.Price, error) {
	unitAmount, err := money.ToMinorUnits(spec.Amount)
	if err != nil {
		return nil, errors.Validation("stripe.CreatePrice", err.Error())
	}
	params := &stripe.PriceParams{
		Params:     stripe.Params{Context: ctx},
		Product:    stripe.String(spec.ProductID),
		UnitAmount: stripe.Int64(unitAmount),
		Currency:   stripe.String(strings.ToLower(spec.Currency)),
	}
	params.SetIdempotencyKey("price-create-" + spec.ProductID)

	p, err := g.api.Prices.New(params)
	if err != nil {
		return nil, wrapErr("stripe.CreatePrice", err)
	}
	return priceFromStripe(p), nil
}

func (g *Gateway) ListProducts(ctx context.Context) ([]*gateway.Product, error) {
	params := &stripe.ProductListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(listPageSize), Single: true},
		Active:     stripe.Bool(true),
	}
	iter := g.api.Products.List(params)

	var products []*gateway.Product
	for iter.Next() {
		p := iter.Product()
		price, err := g.activePriceOf(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if price == nil {
			// 没有生效价格的商品对本系统不可见
			continue
		}
		products = append(products, productFromStripe(p, price))
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("stripe.ListProducts", err)
	}
	return products, nil
}

func (g *Gateway) FindProductByExternalID(ctx context.Context, externalID string) (*gateway.Product, error) {
	params := &stripe.ProductListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(listPageSize), Single: true},
		Active:     stripe.Bool(true),
	}
	iter := g.api.Products.List(params)
	for iter.Next() {
		p := iter.Product()
		if p.Metadata[gateway.MetaExternalProductID] != externalID {
			continue
		}
		price, err := g.activePriceOf(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if price == nil {
			return nil, nil
		}
		return productFromStripe(p, price), nil
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("stripe.FindProductByExternalID", err)
	}
	return nil, nil
}

func (g *Gateway) ActivePrice(ctx context.Context, productID string) (*gateway.Price, error) {
	return g.activePriceOf(ctx, productID)
}

func (g *Gateway) activePriceOf(ctx context.Context, productID string) (*gateway.Price, error) {
	params := &stripe.PriceListParams{
		ListParams: stripe.ListParams{Context: ctx, Limit: stripe.Int64(1), Single: true},
		Product:    stripe.String(productID),
		Active:     stripe.Bool(true),
	}
	iter := g.api.Prices.List(params)
	for iter.Next() {
		return priceFromStripe(iter.Price()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("stripe.ActivePrice", err)
	}
	return nil, nil
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, spec gateway.CheckoutSpec) (*gateway.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(spec.PriceID),
				Quantity: stripe.Int64(spec.Quantity),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		Customer:   stripe.String(spec.CustomerID),
	}
	// 会话打上双方外部ID和数量，便于后续对账
	params.AddMetadata(gateway.MetaExternalCustomerID, spec.ExternalCustomerID)
	params.AddMetadata(gateway.MetaExternalProductID, spec.ExternalProductID)
	params.AddMetadata(gateway.MetaQuantity, cast.ToString(spec.Quantity))

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrapErr("stripe.CreateCheckoutSession", err)
	}
	return &gateway.CheckoutSession{
		ID:     s.ID,
		URL:    s.URL,
		Status: string(s.Status),
	}, nil
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, spec gateway.PaymentIntentSpec) (*gateway.PaymentIntent, error) {
	amount, err := money.ToMinorUnits(spec.Amount)
	if err != nil {
		return nil, errors.Validation("stripe.CreatePaymentIntent", err.Error())
	}
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(spec.Currency)),
	}
	params.AddMetadata(gateway.MetaProductID, spec.ProductID)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapErr("stripe.CreatePaymentIntent", err)
	}
	return intentFromStripe(pi), nil
}

func (g *Gateway) GetPaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, wrapErr("stripe.GetPaymentIntent", err)
	}
	return intentFromStripe(pi), nil
}

func customerFromStripe(c *stripe.Customer) *gateway.Customer {
	return &gateway.Customer{
		ID:                 c.ID,
		Name:               c.Name,
		Email:              c.Email,
		Phone:              c.Phone,
		Description:        c.Description,
		ExternalCustomerID: c.Metadata[gateway.MetaExternalCustomerID],
		CreatedAt:          time.Unix(c.Created, 0).UTC(),
	}
}

func productFromStripe(p *stripe.Product, price *gateway.Price) *gateway.Product {
	return &gateway.Product{
		ID:                p.ID,
		PriceID:           price.ID,
		Name:              p.Name,
		Description:       p.Description,
		Price:             price.Amount,
		Currency:          price.Currency,
		ImageURL:          p.Metadata[gateway.MetaImageURL],
		ExternalProductID: p.Metadata[gateway.MetaExternalProductID],
		CreatedAt:         time.Unix(p.Created, 0).UTC(),
		Active:            p.Active,
	}
}

func priceFromStripe(p *stripe.Price) *gateway.Price {
	return &gateway.Price{
		ID:       p.ID,
		Amount:   money.FromMinorUnits(p.UnitAmount),
		Currency: string(p.Currency),
		Active:   p.Active,
	}
}

func intentFromStripe(pi *stripe.PaymentIntent) *gateway.PaymentIntent {
	return &gateway.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       money.FromMinorUnits(pi.Amount),
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
}
