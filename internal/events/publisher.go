// Package events announces completed submissions over MQTT so downstream
// workers (notification senders, analytics) can react without polling the
// archive.
package events

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/mauka-works/intake-engine/internal/flow"
)

const completionTopicPrefix = "intake/completed/"

// Publisher is a thin MQTT client that emits one event per completed session.
type Publisher struct {
	conn      mqtt.Client
	connected atomic.Bool
	log       zerolog.Logger
}

type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	Log       zerolog.Logger
}

// Connect dials the broker and blocks until the first connect attempt
// resolves. Reconnects afterwards are automatic.
func Connect(opts Options) (*Publisher, error) {
	p := &Publisher{log: opts.Log}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	p.conn = mqtt.NewClient(clientOpts)
	token := p.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Publisher) onConnect(_ mqtt.Client) {
	p.connected.Store(true)
	p.log.Info().Msg("mqtt connected")
}

func (p *Publisher) onConnectionLost(_ mqtt.Client, err error) {
	p.connected.Store(false)
	p.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// completionEvent is the published payload, answers in question order.
type completionEvent struct {
	SessionID   string        `json:"session_id"`
	Role        flow.Role     `json:"role"`
	Answers     []flow.Answer `json:"answers"`
	CompletedAt time.Time     `json:"completed_at"`
}

// PublishCompletion emits one retained-free event on intake/completed/<role>.
func (p *Publisher) PublishCompletion(sessionID string, role flow.Role, answers []flow.Answer) error {
	payload, err := json.Marshal(completionEvent{
		SessionID:   sessionID,
		Role:        role,
		Answers:     answers,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}

	token := p.conn.Publish(completionTopicPrefix+string(role), 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	p.log.Debug().Str("session_id", sessionID).Str("role", string(role)).Msg("completion event published")
	return nil
}

func (p *Publisher) IsConnected() bool {
	return p.connected.Load()
}

func (p *Publisher) Close() {
	p.log.Info().Msg("disconnecting mqtt client")
	p.conn.Disconnect(1000)
}
