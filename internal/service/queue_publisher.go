// Package service publishes login audit events to RabbitMQ.  Errors are
// logged and returned so callers can ignore them without interrupting the
// request flow.
package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    q "github.com/regportal/regbridge/internal/queue"
)

// LoginPublisher sends LoginEvents to the durable portal.login queue.  Each
// publish opens its own connection; login traffic is low.
type LoginPublisher struct {
    URL    string
    Logger *zap.Logger
}

func NewLoginPublisher(url string, log *zap.Logger) *LoginPublisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &LoginPublisher{URL: url, Logger: log.Named("login-publisher")}
}

// PublishLogin publishes ev as a persistent JSON message.
func (p *LoginPublisher) PublishLogin(ctx context.Context, ev q.LoginEvent) error {
    pub, err := newPublishing(ev)
    if err != nil {
        p.Logger.Error("marshal event failed", zap.Error(err))
        return err
    }

    conn, err := amqp.DialConfig(p.URL, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(2 * time.Second),
    })
    if err != nil {
        p.Logger.Warn("dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.Logger.Warn("channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(q.LoginQueue, true, false, false, false, nil); err != nil {
        p.Logger.Warn("queue declare failed", zap.Error(err))
        return err
    }

    // default exchange, routing key = queue name
    if err := ch.PublishWithContext(ctx, "", q.LoginQueue, false, false, pub); err != nil {
        p.Logger.Warn("publish failed", zap.Error(err))
        return err
    }
    return nil
}

func newPublishing(ev q.LoginEvent) (amqp.Publishing, error) {
    body, err := json.Marshal(ev)
    if err != nil {
        return amqp.Publishing{}, err
    }
    return amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }, nil
}
