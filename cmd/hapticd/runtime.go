package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"hapticd/internal/config"
	"hapticd/internal/gpio"
	"hapticd/internal/haptic"
	"hapticd/internal/inputfeedback"
	"hapticd/internal/mqttbridge"
	"hapticd/internal/pwm"
	"hapticd/internal/timedoutput"
	"hapticd/internal/web"
)

type runtime struct {
	cfg  config.Config
	logs *web.LogBuffer

	reg    *timedoutput.Registry
	status *web.Status
	states *web.StateBroadcaster
	dev    *haptic.Device
	input  *inputfeedback.Feedback

	wg sync.WaitGroup
}

// Seams for tests.
var (
	serveWebFn  = web.Serve
	runMQTTFn   = mqttbridge.Run
	openInputFn = inputfeedback.Open
)

func newRuntime(cfg config.Config, logs *web.LogBuffer) *runtime {
	return &runtime{
		cfg:    cfg,
		logs:   logs,
		reg:    timedoutput.NewRegistry(),
		status: web.NewStatus(),
		states: web.NewStateBroadcaster(),
	}
}

func (r *runtime) Registry() *timedoutput.Registry { return r.reg }

func (r *runtime) Device() *haptic.Device { return r.dev }

// Start brings up the device and then the surfaces. Web is served even when
// the device failed so status and logs stay reachable; the returned error is
// the device failure.
func (r *runtime) Start(ctx context.Context) error {
	devErr := r.startDevice()

	r.goRun("web", func() error {
		h := web.Handler(r.reg, r.status, r.states, r.logs)
		log.Printf("web listening on %s", r.cfg.Web.Listen)
		return serveWebFn(ctx, r.cfg.Web.Listen, h)
	})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.states.Run(ctx, r.status, 100*time.Millisecond)
	}()

	if devErr != nil {
		r.status.SetSurface("mqtt", "not started")
		r.status.SetSurface("input", "not started")
		return devErr
	}

	m := r.cfg.MQTT
	if m.Host == "" {
		r.status.SetSurface("mqtt", "disabled")
	} else {
		r.status.SetSurface("mqtt", "running")
		r.goRun("mqtt", func() error {
			return runMQTTFn(ctx, mqttbridge.Config{
				Host:       m.Host,
				Port:       m.Port,
				ClientID:   m.ClientID,
				CACert:     m.CACert,
				ClientCert: m.ClientCert,
				ClientKey:  m.ClientKey,
			}, m.TopicPrefix, r.reg)
		})
	}

	in := r.cfg.Input
	if in.Device == "" {
		r.status.SetSurface("input", "disabled")
		return nil
	}
	fb, err := openInputFn(in.Device, r.dev, in.ClickMs, in.ClickDuty)
	if err != nil {
		log.Printf("input feedback: %v", err)
		r.status.SetSurface("input", "error")
		return nil
	}
	r.input = fb
	r.status.SetSurface("input", "running")
	r.goRun("input", func() error { return fb.Run(ctx) })
	return nil
}

func (r *runtime) startDevice() error {
	h := r.cfg.Haptic
	dev, err := haptic.Start(haptic.Config{
		Name:         h.Name,
		FrequencyHz:  h.FrequencyHz,
		DutyPercent:  h.DutyPercent,
		StartupPulse: h.StartupPulse,
	}, haptic.Resources{
		OpenPWM:  pwmOpener(h.PWM),
		OpenLine: lineOpener(h.EnableLine),
	}, r.reg)
	if err != nil {
		return err
	}
	r.dev = dev
	r.status.AddDevice(dev.Name(), dev.Controller())
	return nil
}

func (r *runtime) goRun(name string, fn func() error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := fn(); err != nil && err != context.Canceled {
			log.Printf("%s stopped: %v", name, err)
			r.status.SetSurface(name, "error")
		}
	}()
}

// Close waits for the surfaces (their context must already be done) and
// then releases the device.
func (r *runtime) Close() {
	if r.input != nil {
		_ = r.input.Close()
	}
	r.wg.Wait()
	if r.dev != nil {
		r.status.RemoveDevice(r.dev.Name())
		if err := r.dev.Close(); err != nil {
			log.Printf("haptic: close: %v", err)
		}
		r.dev = nil
	}
}

func pwmOpener(cfg config.PWMConfig) func() (haptic.PWMOutput, error) {
	return func() (haptic.PWMOutput, error) {
		switch cfg.Backend {
		case "sim":
			return pwm.NewSim(), nil
		case "sysfs":
			ch := 1
			if cfg.Channel != nil {
				ch = *cfg.Channel
			}
			return pwm.OpenSysfs(cfg.Chip, ch)
		}
		return nil, fmt.Errorf("unknown pwm backend %q", cfg.Backend)
	}
}

func lineOpener(cfg config.EnableLineConfig) func() (haptic.EnableLine, error) {
	return func() (haptic.EnableLine, error) {
		pin := 17
		if cfg.Pin != nil {
			pin = *cfg.Pin
		}
		switch cfg.Backend {
		case "sim":
			return gpio.NewSim(), nil
		case "gpiocdev":
			return gpio.OpenCdev(cfg.Chip, cfg.Line)
		case "gpiomem":
			return gpio.OpenVattu(pin)
		case "memmap":
			return gpio.OpenMemmap(pin)
		}
		return nil, fmt.Errorf("unknown enable line backend %q", cfg.Backend)
	}
}
