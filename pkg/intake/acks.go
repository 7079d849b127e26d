package intake

import "log/slog"

// acknowledger 是amqp channel上本包用到的确认操作子集
type acknowledger interface {
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple bool, requeue bool) error
}

type ackRequest struct {
	tag     uint64
	ack     bool
	requeue bool // 仅在nack时有意义
}

// ackLoop 把并发handler的ack/nack收拢到单一goroutine，
// 保证共享channel上的操作串行化
type ackLoop struct {
	ch   acknowledger
	reqs chan ackRequest
	done chan struct{}
}

func newAckLoop(ch acknowledger) *ackLoop {
	return &ackLoop{
		ch:   ch,
		reqs: make(chan ackRequest),
		done: make(chan struct{}),
	}
}

func (l *ackLoop) run() {
	defer close(l.done)
	for req := range l.reqs {
		var err error
		if req.ack {
			err = l.ch.Ack(req.tag, false)
		} else {
			err = l.ch.Nack(req.tag, false, req.requeue)
		}
		if err != nil {
			// 确认失败说明channel已坏，broker会在重连后重投未确认消息
			slog.Error("[Intake] Acknowledge failed", "deliveryTag", req.tag, "ack", req.ack, "error", err)
		}
	}
}

func (l *ackLoop) submit(req ackRequest) {
	l.reqs <- req
}

// close 停止循环并等待已提交的确认全部落到channel上
func (l *ackLoop) close() {
	close(l.reqs)
	<-l.done
}
