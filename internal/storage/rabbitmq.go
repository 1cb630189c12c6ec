package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-matcher/internal/config"
	"resume-matcher/internal/logger"
	"resume-matcher/internal/tracing"
)

var mqTracer = otel.Tracer("resume-matcher/storage/rabbitmq")

// MessageQueue 消息队列接口
type MessageQueue interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
	EnsureExchange(exchangeName, exchangeType string, durable bool) error
	EnsureQueue(queueName string, durable bool) error
	BindQueue(queueName, exchangeName, routingKey string) error
	Close() error
}

var _ MessageQueue = (*RabbitMQ)(nil)

// DeliveryHandler 处理一条消息；返回 true 确认，false 拒绝并重新入队
type DeliveryHandler func(ctx context.Context, body []byte) bool

// RabbitMQ 评分任务的发布与消费
type RabbitMQ struct {
	conn        *amqp.Connection
	channelPool sync.Pool
	cfg         *config.RabbitMQConfig
	log         zerolog.Logger

	declareMu   sync.Mutex
	exchangeMap map[string]bool
	queueMap    map[string]bool
	bindingMap  map[string]bool // key: "exchange:queue:routingKey"

	publishMutex sync.Mutex
}

// NewRabbitMQ 建立连接并校验通道可用
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		cfg:         cfg,
		log:         logger.Component("rabbitmq"),
		exchangeMap: make(map[string]bool),
		queueMap:    make(map[string]bool),
		bindingMap:  make(map[string]bool),
	}
	mq.channelPool = sync.Pool{
		New: func() any {
			ch, errPool := conn.Channel()
			if errPool != nil {
				mq.log.Error().Err(errPool).Msg("创建RabbitMQ通道失败")
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道")
	}
	mq.putChannel(testCh)

	mq.log.Info().Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

// SetupScoreTopology 声明评分任务的交换机、队列与绑定
func (r *RabbitMQ) SetupScoreTopology() error {
	if err := r.EnsureExchange(r.cfg.ScoreExchange, amqp.ExchangeDirect, true); err != nil {
		return err
	}
	if err := r.EnsureQueue(r.cfg.ScoreJobQueue, true); err != nil {
		return err
	}
	return r.BindQueue(r.cfg.ScoreJobQueue, r.cfg.ScoreExchange, r.cfg.ScoreRoutingKey)
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch, _ := r.channelPool.Get().(*amqp.Channel)
	if ch == nil || ch.IsClosed() {
		newCh, err := r.conn.Channel()
		if err != nil {
			r.log.Error().Err(err).Msg("创建新RabbitMQ通道失败")
			return nil
		}
		return newCh
	}
	return ch
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil && !ch.IsClosed() {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange 确保exchange存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange名称不能为空")
	}
	if exchangeName == "amq.default" || exchangeName == "default" {
		return fmt.Errorf("不能声明默认交换机 '%s'", exchangeName)
	}

	r.declareMu.Lock()
	defer r.declareMu.Unlock()
	if r.exchangeMap[exchangeName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}
	r.exchangeMap[exchangeName] = true
	r.log.Info().Str("exchange", exchangeName).Str("type", exchangeType).Msg("已确保exchange存在")
	return nil
}

// EnsureQueue 确保队列存在
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	r.declareMu.Lock()
	defer r.declareMu.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if r.queueMap[queueName] {
		// 已声明过的队列用被动声明校验仍然存在
		if _, err := ch.QueueDeclarePassive(queueName, durable, false, false, false, nil); err != nil {
			delete(r.queueMap, queueName)
			return fmt.Errorf("被动声明队列 '%s' 失败: %w", queueName, err)
		}
		return nil
	}

	if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}
	r.queueMap[queueName] = true
	r.log.Info().Str("queue", queueName).Msg("已确保队列存在")
	return nil
}

// BindQueue 绑定队列到exchange
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	bindingKey := fmt.Sprintf("%s:%s:%s", exchangeName, queueName, routingKey)

	r.declareMu.Lock()
	defer r.declareMu.Unlock()
	if r.bindingMap[bindingKey] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("绑定队列到exchange失败: %w", err)
	}
	r.bindingMap[bindingKey] = true
	r.log.Info().Str("queue", queueName).Str("exchange", exchangeName).Str("routing_key", routingKey).Msg("已绑定队列")
	return nil
}

// PublishMessage 发布消息到exchange
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	ctx, span := mqTracer.Start(ctx, "RabbitMQ.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination.name", exchangeName),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
		attribute.Int("messaging.message.body.size", len(message)),
	)

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		err := fmt.Errorf("无法获取RabbitMQ通道")
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return err
	}
	defer r.putChannel(ch)

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	err := ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		DeliveryMode: deliveryMode,
		ContentType:  "application/json",
		Body:         message,
		Timestamp:    time.Now(),
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return fmt.Errorf("发布消息失败: %w", err)
	}
	return nil
}

// StartConsumer 启动消费协程，ctx 取消后停止并关闭该通道
func (r *RabbitMQ) StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler DeliveryHandler) error {
	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		r.putChannel(ch)
		return fmt.Errorf("设置QoS失败: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		r.putChannel(ch)
		return fmt.Errorf("注册消费者失败: %w", err)
	}

	go func() {
		// 带预取的通道不再放回池中
		defer ch.Close()
		defer r.log.Info().Str("queue", queueName).Msg("RabbitMQ消费者已停止")

		r.log.Info().Str("queue", queueName).Int("prefetch", prefetchCount).Msg("RabbitMQ消费者已启动")
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					r.log.Warn().Str("queue", queueName).Msg("RabbitMQ投递通道已关闭")
					return
				}
				if handler(ctx, delivery.Body) {
					if err := delivery.Ack(false); err != nil {
						r.log.Error().Err(err).Msg("确认消息失败")
					}
					continue
				}
				if err := delivery.Nack(false, true); err != nil {
					r.log.Error().Err(err).Msg("拒绝消息失败")
				}
			}
		}
	}()

	return nil
}
