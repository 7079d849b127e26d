package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flaboy/aira-payments/pkg/errors"
	"github.com/flaboy/aira-payments/pkg/events"
	"github.com/flaboy/aira-payments/pkg/types"
)

const defaultPrefetch = 8

// Orchestrator 消费侧只依赖客户创建这一个编排入口
type Orchestrator interface {
	CreateCustomer(ctx context.Context, req types.CreateCustomerRequest) (*types.CreateCustomerResponse, error)
}

// Consumer 从持久化队列消费客户开通消息，逐条手工确认
// 每条消息的状态机：Received → Processing → {Acked | Nacked}
type Consumer struct {
	uri      string
	queue    string
	prefetch int
	svc      Orchestrator
}

func New(uri, queue string, prefetch int, svc Orchestrator) *Consumer {
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}
	return &Consumer{uri: uri, queue: queue, prefetch: prefetch, svc: svc}
}

// Run 阻塞消费直到ctx取消，单条消息失败不会中断循环
// 退出前等待在途消息各自处理完成，不做额外排空
func (c *Consumer) Run(ctx context.Context) error {
	const op = "intake.Run"

	conn, err := amqp.Dial(c.uri)
	if err != nil {
		return errors.Transport(op, fmt.Sprintf("broker connect failed: %s", err), err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return errors.Transport(op, fmt.Sprintf("channel open failed: %s", err), err)
	}
	defer ch.Close()

	// 声明是幂等的：durable、非exclusive、非autoDelete
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return errors.Transport(op, fmt.Sprintf("queue declare failed: %s", err), err)
	}

	// 显式限制在途消息数，避免broker无界派发
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return errors.Transport(op, fmt.Sprintf("qos failed: %s", err), err)
	}

	consumerTag := "aira-payments-" + uuid.NewString()
	deliveries, err := ch.Consume(c.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return errors.Transport(op, fmt.Sprintf("consume failed: %s", err), err)
	}

	// channel不是并发安全的，所有ack/nack收拢到单一goroutine串行执行
	acks := newAckLoop(ch)
	go acks.run()
	defer acks.close()

	slog.Info("[Intake] Consumer started", "queue", c.queue, "prefetch", c.prefetch, "consumerTag", consumerTag)

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			slog.Info("[Intake] Consumer stopped", "queue", c.queue)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				wg.Wait()
				return errors.Transport(op, "delivery channel closed by broker", nil)
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				c.handle(ctx, d, acks)
			}(d)
		}
	}
}

// handle 处理单条投递并提交恰好一次ack或nack
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, acks *ackLoop) {
	msgID := d.MessageId
	if msgID == "" {
		msgID = uuid.NewString()
	}

	req, err := decodeProvisioning(d.Body)
	if err != nil {
		// 毒消息：格式损坏的消息重试多少次都不会成功，直接丢给死信
		slog.Error("[Intake] Dropping malformed message", "messageId", msgID, "error", err)
		acks.submit(ackRequest{tag: d.DeliveryTag})
		return
	}

	resp, err := c.svc.CreateCustomer(ctx, *req)
	if err != nil {
		if errors.Retryable(err) && !d.Redelivered {
			// 网关/传输类故障可能是瞬时的，首次投递失败重投一次
			slog.Warn("[Intake] Transient failure, requeueing message",
				"messageId", msgID, "externalCustomerId", req.ExternalCustomerID, "error", err)
			acks.submit(ackRequest{tag: d.DeliveryTag, requeue: true})
			return
		}
		slog.Error("[Intake] Message processing failed, dead-lettering",
			"messageId", msgID, "externalCustomerId", req.ExternalCustomerID,
			"redelivered", d.Redelivered, "error", err)
		acks.submit(ackRequest{tag: d.DeliveryTag})
		return
	}

	slog.Info("[Intake] Customer provisioned",
		"messageId", msgID, "customerId", resp.ID, "externalCustomerId", resp.ExternalCustomerID)

	if err := events.EmitCustomerProvisioned(&types.CustomerProvisionedEvent{
		CustomerID:         resp.ID,
		ExternalCustomerID: resp.ExternalCustomerID,
		Email:              resp.Email,
		Source:             "intake",
		CreatedAt:          time.Now().UTC(),
	}); err != nil {
		slog.Error("[Intake] Provisioned event handler failed", "messageId", msgID, "error", err)
	}

	acks.submit(ackRequest{tag: d.DeliveryTag, ack: true})
}

// decodeProvisioning 解析客户开通消息
// 字段名大小写不敏感，缺失字段得到空串，只有完全损坏的JSON才算失败
func decodeProvisioning(body []byte) (*types.CreateCustomerRequest, error) {
	var req types.CreateCustomerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("unmarshal provisioning message: %w", err)
	}
	return &req, nil
}
