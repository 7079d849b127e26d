package intake

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaboy/aira-payments/pkg/errors"
	"github.com/flaboy/aira-payments/pkg/types"
)

type fakeOrchestrator struct {
	mu    sync.Mutex
	calls []types.CreateCustomerRequest
	err   error
	delay time.Duration
}

func (f *fakeOrchestrator) CreateCustomer(_ context.Context, req types.CreateCustomerRequest) (*types.CreateCustomerResponse, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &types.CreateCustomerResponse{
		ID:                 "cus_fake_1",
		Name:               req.Name,
		Email:              req.Email,
		ExternalCustomerID: req.ExternalCustomerID,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

type ackCall struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcker struct {
	mu    sync.Mutex
	calls []ackCall
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ackCall{tag: tag, ack: true})
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ackCall{tag: tag, requeue: requeue})
	return nil
}

// deliver runs one delivery through the handler with the ack loop active and
// returns the acknowledge operations that reached the channel.
func deliver(t *testing.T, svc Orchestrator, d amqp.Delivery) []ackCall {
	t.Helper()
	acker := &fakeAcker{}
	acks := newAckLoop(acker)
	go acks.run()

	c := New("amqp://unused", "payments_queue-v2", 8, svc)
	c.handle(context.Background(), d, acks)

	acks.close()
	return acker.calls
}

// TestHandle_MalformedBody verifies a syntactically invalid message produces
// exactly one nack without requeue and zero orchestration calls.
func TestHandle_MalformedBody(t *testing.T) {
	svc := &fakeOrchestrator{}
	calls := deliver(t, svc, amqp.Delivery{DeliveryTag: 7, Body: []byte(`{not json at all`)})

	require.Len(t, calls, 1)
	assert.False(t, calls[0].ack)
	assert.False(t, calls[0].requeue)
	assert.Equal(t, uint64(7), calls[0].tag)
	assert.Empty(t, svc.calls, "malformed messages must never reach orchestration")
}

// TestHandle_ValidMessage verifies a valid message results in exactly one
// CreateCustomer call and exactly one ack, even when the call is slow.
func TestHandle_ValidMessage(t *testing.T) {
	svc := &fakeOrchestrator{delay: 50 * time.Millisecond}
	body := []byte(`{"name":"Alice","email":"alice@example.com","externalCustomerId":"cust_42"}`)
	calls := deliver(t, svc, amqp.Delivery{DeliveryTag: 1, Body: body})

	require.Len(t, calls, 1)
	assert.True(t, calls[0].ack)
	require.Len(t, svc.calls, 1)
	assert.Equal(t, "Alice", svc.calls[0].Name)
	assert.Equal(t, "cust_42", svc.calls[0].ExternalCustomerID)
}

// TestHandle_CaseInsensitiveFields verifies field names are matched without
// regard to case and missing fields decode to empty strings.
func TestHandle_CaseInsensitiveFields(t *testing.T) {
	svc := &fakeOrchestrator{}
	body := []byte(`{"NAME":"Bob","Email":"bob@example.com","EXTERNALCUSTOMERID":"cust_7"}`)
	calls := deliver(t, svc, amqp.Delivery{DeliveryTag: 2, Body: body})

	require.Len(t, calls, 1)
	require.Len(t, svc.calls, 1)
	assert.Equal(t, "Bob", svc.calls[0].Name)
	assert.Equal(t, "bob@example.com", svc.calls[0].Email)
	assert.Equal(t, "cust_7", svc.calls[0].ExternalCustomerID)
	assert.Empty(t, svc.calls[0].Phone)
}

// TestHandle_TransientFailureRequeuesOnce verifies gateway failures on a
// first delivery are requeued, while a redelivered message is dead-lettered.
func TestHandle_TransientFailureRequeuesOnce(t *testing.T) {
	svc := &fakeOrchestrator{err: errors.Gateway("stripe.CreateCustomer", "gateway operation failed: timeout", nil)}
	body := []byte(`{"name":"Alice","email":"alice@example.com","externalCustomerId":"cust_42"}`)

	calls := deliver(t, svc, amqp.Delivery{DeliveryTag: 3, Body: body})
	require.Len(t, calls, 1)
	assert.False(t, calls[0].ack)
	assert.True(t, calls[0].requeue, "first transient failure goes back to the queue")

	calls = deliver(t, svc, amqp.Delivery{DeliveryTag: 4, Body: body, Redelivered: true})
	require.Len(t, calls, 1)
	assert.False(t, calls[0].ack)
	assert.False(t, calls[0].requeue, "a redelivered failure is dead-lettered")
}

// TestHandle_NonRetryableFailure verifies validation failures are never
// requeued regardless of delivery count.
func TestHandle_NonRetryableFailure(t *testing.T) {
	svc := &fakeOrchestrator{err: errors.Validation("payments.CreateCustomer", "email must be a valid email address")}
	body := []byte(`{"name":"Alice","email":"nope","externalCustomerId":"cust_42"}`)

	calls := deliver(t, svc, amqp.Delivery{DeliveryTag: 5, Body: body})
	require.Len(t, calls, 1)
	assert.False(t, calls[0].ack)
	assert.False(t, calls[0].requeue)
}

// TestAckLoop_SerializesConcurrentSubmissions verifies completions from many
// concurrent handlers all pass through the single ack goroutine.
func TestAckLoop_SerializesConcurrentSubmissions(t *testing.T) {
	acker := &fakeAcker{}
	acks := newAckLoop(acker)
	go acks.run()

	const n = 64
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(tag uint64) {
			defer wg.Done()
			acks.submit(ackRequest{tag: tag, ack: tag%2 == 0})
		}(uint64(i))
	}
	wg.Wait()
	acks.close()

	assert.Len(t, acker.calls, n)
	seen := map[uint64]bool{}
	for _, c := range acker.calls {
		assert.False(t, seen[c.tag], "tag %d acknowledged twice", c.tag)
		seen[c.tag] = true
	}
}

func TestDecodeProvisioning_PartialObject(t *testing.T) {
	req, err := decodeProvisioning([]byte(`{"email":"x@example.com","unknownField":1}`))
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", req.Email)
	assert.Empty(t, req.Name, "missing fields default to empty")
}

func TestDecodeProvisioning_Malformed(t *testing.T) {
	for _, body := range []string{``, `not json`, `[1,2,3`} {
		_, err := decodeProvisioning([]byte(body))
		assert.Error(t, err, "body %q", body)
	}
}
