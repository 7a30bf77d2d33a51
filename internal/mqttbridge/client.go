package mqttbridge

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Client wraps the paho client. A Client built with an empty host is a
// disabled no-op.
type Client struct {
	client    paho.Client
	enabled   bool
	onConnect func()
	onMessage func(topic string, payload []byte)
}

type Config struct {
	Host       string
	Port       int
	ClientID   string
	CACert     string
	ClientCert string
	ClientKey  string
}

type Handlers struct {
	// OnConnect runs after every (re)connect; subscribe from here so
	// subscriptions survive broker restarts.
	OnConnect func()
	OnMessage func(topic string, payload []byte)
}

const connectWait = 5 * time.Second

func NewClient(cfg Config, handlers Handlers) (*Client, error) {
	c := &Client{
		onConnect: handlers.OnConnect,
		onMessage: handlers.OnMessage,
	}
	if cfg.Host == "" {
		log.Printf("mqtt: disabled (no host configured)")
		return c, nil
	}
	c.enabled = true

	var broker string
	var tlsConfig *tls.Config
	if cfg.CACert != "" || cfg.ClientCert != "" {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)
		var err error
		tlsConfig, err = buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("mqtt: build tls config: %w", err)
		}
	} else {
		if cfg.Port == 0 {
			cfg.Port = 1883
		}
		broker = fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		}).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", broker)
			if c.onConnect != nil {
				c.onConnect()
			}
		}).
		SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
			if c.onMessage != nil {
				c.onMessage(msg.Topic(), msg.Payload())
			}
		})
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	paho.ERROR = log.New(os.Stderr, "[MQTT ERROR] ", 0)
	paho.CRITICAL = log.New(os.Stderr, "[MQTT CRIT] ", 0)
	paho.WARN = log.New(os.Stderr, "[MQTT WARN] ", 0)

	c.client = paho.NewClient(opts)
	return c, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}
	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read ca cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("ca cert %s: no certificates found", cfg.CACert)
		}
		tlsConfig.RootCAs = pool
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

// Connect starts connecting. The client keeps retrying in the background, so
// a broker that is down at startup is logged, not fatal.
func (c *Client) Connect() error {
	if !c.enabled {
		return nil
	}
	token := c.client.Connect()
	if !token.WaitTimeout(connectWait) {
		log.Printf("mqtt: broker not reachable yet, retrying in background")
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connect: %w", err)
	}
	return nil
}

func (c *Client) Disconnect() {
	if !c.enabled || c.client == nil {
		return
	}
	c.client.Disconnect(250)
}

func (c *Client) Subscribe(topic string) error {
	if !c.enabled {
		return nil
	}
	if token := c.client.Subscribe(topic, 0, nil); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Client) Publish(topic, payload string) {
	if !c.enabled {
		return
	}
	c.client.Publish(topic, 0, false, payload)
}

func (c *Client) Enabled() bool { return c.enabled }
