package mqttbridge

import (
	"context"
	"log"

	"hapticd/internal/timedoutput"
)

// Run connects, serves the bridge until ctx is done, then disconnects.
// A disabled client returns immediately.
func Run(ctx context.Context, cfg Config, prefix string, reg *timedoutput.Registry) error {
	var br *Bridge
	var c *Client
	c, err := NewClient(cfg, Handlers{
		OnConnect: func() {
			for _, t := range br.Topics() {
				if err := c.Subscribe(t); err != nil {
					log.Printf("%v", err)
				}
			}
			br.PublishAll()
		},
		OnMessage: func(topic string, payload []byte) {
			br.HandleMessage(topic, payload)
		},
	})
	if err != nil {
		return err
	}
	if !c.Enabled() {
		return nil
	}
	br = NewBridge(reg, prefix, c)

	if err := c.Connect(); err != nil {
		return err
	}
	<-ctx.Done()
	c.Disconnect()
	return nil
}
