// Package mqtt connects the kiosk to the site broker.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Topic roots. Node topics carry the kiosk's client id.
const (
	statusRoot    = "badger/status/node"
	controlRoot   = "badger/control/node"
	broadcastRoot = "badger/control/broadcast"
)

// StatusTopic returns the topic a node publishes name on.
func StatusTopic(clientID, name string) string {
	return fmt.Sprintf("%s/%s/%s", statusRoot, clientID, name)
}

// ControlTopic returns the topic a node receives the name command on.
func ControlTopic(clientID, name string) string {
	return fmt.Sprintf("%s/%s/%s", controlRoot, clientID, name)
}

// BroadcastTopic returns the topic every node receives the name command on.
func BroadcastTopic(name string) string {
	return fmt.Sprintf("%s/%s", broadcastRoot, name)
}

// Client is the kiosk's broker connection. A Client built without a host
// is disabled and every method is a no-op.
type Client struct {
	client   paho.Client
	clientID string
	qos      byte
	enabled  bool
	handlers Handlers
	log      *slog.Logger
}

// Config holds MQTT connection settings.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
	QoS        byte   `yaml:"qos"`
	KeepAlive  int    `yaml:"keepalive"` // seconds, default 60
}

func (c Config) secure() bool {
	return c.CACert != "" || c.ClientCert != ""
}

// brokerURL picks the scheme and default port from the TLS settings.
func (c Config) brokerURL() string {
	scheme, port := "tcp", 1883
	if c.secure() {
		scheme, port = "ssl", 8883
	}
	if c.Port != 0 {
		port = c.Port
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, port)
}

// Handlers holds callback functions for MQTT events. They run on paho's
// goroutines.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
	OnMessage    func(topic string, payload []byte)
}

// New creates a client. The node's "online" status topic is retained: true
// while connected, false via the broker's will when the kiosk drops off.
func New(cfg Config, clientID string, handlers Handlers) (*Client, error) {
	c := &Client{
		clientID: clientID,
		qos:      cfg.QoS,
		handlers: handlers,
		log:      slog.Default().With("component", "mqtt"),
	}
	if cfg.Host == "" {
		c.log.Info("disabled, no host configured")
		return c, nil
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid qos %d", cfg.QoS)
	}

	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 60
	}

	broker := cfg.brokerURL()
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(time.Duration(keepAlive) * time.Second).
		SetWill(StatusTopic(clientID, "online"), "false", 1, true).
		SetConnectionLostHandler(c.handleConnectionLost).
		SetOnConnectHandler(c.handleConnect).
		SetDefaultPublishHandler(c.handleMessage)

	if cfg.secure() {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	} else {
		c.log.Warn("using non-TLS connection", "broker", broker)
	}

	bridgeLogging()
	c.client = paho.NewClient(opts)
	c.enabled = true
	return c, nil
}

// bridgeLogging routes paho's package loggers through slog.
func bridgeLogging() {
	h := slog.Default().With("component", "paho").Handler()
	paho.ERROR = slog.NewLogLogger(h, slog.LevelError)
	paho.CRITICAL = slog.NewLogLogger(h, slog.LevelError)
	paho.WARN = slog.NewLogLogger(h, slog.LevelWarn)
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CACert)
		}
		tlsConfig.RootCAs = caPool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Connect blocks until the first connection succeeds. A disabled client
// reports itself connected so the kiosk does not sit in the offline state.
func (c *Client) Connect() error {
	if !c.enabled {
		if c.handlers.OnConnect != nil {
			c.handlers.OnConnect()
		}
		return nil
	}
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect %s: %w", c.clientID, token.Error())
	}
	return nil
}

// Disconnect clears the online flag and closes the connection.
func (c *Client) Disconnect() {
	if !c.enabled {
		return
	}
	c.client.Publish(StatusTopic(c.clientID, "online"), 1, true, "false").WaitTimeout(time.Second)
	c.client.Disconnect(250)
}

// Subscribe subscribes to a topic. Messages arrive on Handlers.OnMessage.
func (c *Client) Subscribe(topic string) error {
	if !c.enabled {
		return nil
	}
	if token := c.client.Subscribe(topic, c.qos, nil); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

// Publish sends payload without waiting for the broker.
func (c *Client) Publish(topic string, payload []byte) {
	if !c.enabled {
		return
	}
	c.client.Publish(topic, c.qos, false, payload)
}

// PublishJSON encodes v and publishes it on topic.
func (c *Client) PublishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	c.Publish(topic, payload)
	return nil
}

// IsEnabled returns whether a broker is configured.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

func (c *Client) handleConnect(client paho.Client) {
	c.log.Info("connected")
	client.Publish(StatusTopic(c.clientID, "online"), 1, true, "true")
	if c.handlers.OnConnect != nil {
		c.handlers.OnConnect()
	}
}

func (c *Client) handleConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection lost", "error", err)
	if c.handlers.OnDisconnect != nil {
		c.handlers.OnDisconnect()
	}
}

func (c *Client) handleMessage(_ paho.Client, msg paho.Message) {
	c.log.Debug("message", "topic", msg.Topic(), "bytes", len(msg.Payload()))
	if c.handlers.OnMessage != nil {
		c.handlers.OnMessage(msg.Topic(), msg.Payload())
	}
}
