package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/flaboy/aira-payments/pkg/errors"
	"github.com/flaboy/aira-payments/pkg/gateway"
)

// newStubGateway points the Stripe client at a local stub server so list
// traffic can be observed.
func newStubGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(srv.URL),
	})
	api := &client.API{}
	api.Init("sk_test_stub", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &Gateway{api: api}
}

// TestWrapErr verifies every gateway failure is translated into the gateway
// kind with the gateway-side message preserved.
func TestWrapErr(t *testing.T) {
	sErr := &stripe.Error{Msg: "No such customer: cus_123"}
	err := wrapErr("stripe.FindCustomerByExternalID", sErr)

	assert.True(t, errors.IsGateway(err))
	assert.Contains(t, err.Error(), "gateway operation failed: No such customer: cus_123")

	plain := wrapErr("stripe.ListProducts", assert.AnError)
	assert.True(t, errors.IsGateway(plain))
	assert.Contains(t, plain.Error(), "gateway operation failed:")
}

// TestFindCustomerByExternalID_FirstPageOnly verifies the metadata scan stops
// at the first page even when the gateway reports more pages available: a
// match beyond the page ceiling is a miss, not a reason to keep fetching.
func TestFindCustomerByExternalID_FirstPageOnly(t *testing.T) {
	requests := 0
	g := newStubGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/customers", r.URL.Path)
		requests++
		fmt.Fprint(w, `{
			"object": "list",
			"url": "/v1/customers",
			"has_more": true,
			"data": [
				{"id": "cus_other", "object": "customer", "metadata": {"externalCustomerId": "cust_other"}}
			]
		}`)
	}))

	c, err := g.FindCustomerByExternalID(context.Background(), "cust_42")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, 1, requests)
}

// TestFindProductByExternalID_FirstPageOnly is the same ceiling check for the
// product scan.
func TestFindProductByExternalID_FirstPageOnly(t *testing.T) {
	requests := 0
	g := newStubGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/products", r.URL.Path)
		requests++
		fmt.Fprint(w, `{
			"object": "list",
			"url": "/v1/products",
			"has_more": true,
			"data": [
				{"id": "prod_other", "object": "product", "active": true, "metadata": {"externalProductId": "game_other"}}
			]
		}`)
	}))

	p, err := g.FindProductByExternalID(context.Background(), "game_42")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 1, requests)
}

func TestPriceFromStripe(t *testing.T) {
	p := priceFromStripe(&stripe.Price{ID: "price_1", UnitAmount: 5999, Currency: "usd", Active: true})
	assert.Equal(t, "59.99", p.Amount.String())
	assert.Equal(t, "usd", p.Currency)
	assert.True(t, p.Active)
}

func TestIntentFromStripe(t *testing.T) {
	pi := intentFromStripe(&stripe.PaymentIntent{
		ID:           "pi_1",
		ClientSecret: "pi_1_secret",
		Amount:       11998,
		Currency:     "usd",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
	})
	assert.Equal(t, "119.98", pi.Amount.String())
	assert.Equal(t, "requires_payment_method", pi.Status)
}

func TestProductFromStripe_Metadata(t *testing.T) {
	price := &gateway.Price{ID: "price_1", Currency: "usd"}
	p := productFromStripe(&stripe.Product{
		ID:     "prod_1",
		Name:   "Space Game",
		Active: true,
		Metadata: map[string]string{
			gateway.MetaExternalProductID: "game_1",
			gateway.MetaImageURL:          "https://img.example/game_1.png",
		},
		Created: 1700000000,
	}, price)

	require.NotNil(t, p)
	assert.Equal(t, "game_1", p.ExternalProductID)
	assert.Equal(t, "https://img.example/game_1.png", p.ImageURL)
	assert.Equal(t, "price_1", p.PriceID)
	assert.Equal(t, int64(1700000000), p.CreatedAt.Unix())
}
