// Package console is an interactive shell for exercising a timed-output
// device from a terminal.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"hapticd/internal/haptic"
	"hapticd/internal/timedoutput"
)

type command struct {
	name string
	help string
	run  func(args []string) (string, error)
}

type Console struct {
	reg    *timedoutput.Registry
	device string
	shell  *ishell.Shell
}

func New(reg *timedoutput.Registry, device string) *Console {
	c := &Console{reg: reg, device: device}

	shell := ishell.New()
	shell.Println("hapticd console (device " + device + ")")
	shell.ShowPrompt(true)
	for _, cmd := range c.commands() {
		run := cmd.run
		shell.AddCmd(&ishell.Cmd{
			Name: cmd.name,
			Help: cmd.help,
			Func: func(ctx *ishell.Context) {
				out, err := run(ctx.Args)
				if err != nil {
					ctx.Err(err)
					return
				}
				if out != "" {
					ctx.Println(out)
				}
			},
		})
	}
	c.shell = shell
	return c
}

// Run blocks until the user exits the shell or Close is called.
func (c *Console) Run() { c.shell.Run() }

func (c *Console) Close() { c.shell.Close() }

func (c *Console) commands() []command {
	return []command{
		{"vibrate", "vibrate <ms> [duty%]  run the actuator", c.vibrate},
		{"stop", "stop  turn the actuator off", c.stop},
		{"remaining", "remaining  ms left in the current run", c.remaining},
		{"freq", "freq [hz]  show or set the drive frequency", c.attr("freq")},
		{"duty", "duty [pct]  show or set the default duty", c.attr("duty")},
		{"status", "status  remaining time and attributes", c.status},
		{"devices", "devices  list registered timed outputs", c.devices},
	}
}

func (c *Console) target() (timedoutput.Device, error) {
	dev, ok := c.reg.Lookup(c.device)
	if !ok {
		return nil, fmt.Errorf("device %q not registered", c.device)
	}
	return dev, nil
}

func (c *Console) vibrate(args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", errors.New("usage: vibrate <ms> [duty%]")
	}
	ms, err := strconv.Atoi(args[0])
	if err != nil || ms < 0 {
		return "", fmt.Errorf("bad duration %q", args[0])
	}
	// The command word only carries 16 bits of duration.
	if ms > haptic.MaxTimeoutMs {
		ms = haptic.MaxTimeoutMs
	}
	duty := haptic.NoDutyOverride
	if len(args) == 2 {
		duty, err = strconv.Atoi(args[1])
		if err != nil || duty < 0 || duty > 100 {
			return "", fmt.Errorf("bad duty %q", args[1])
		}
	}
	dev, err := c.target()
	if err != nil {
		return "", err
	}
	applied := dev.Enable(int32(haptic.Encode(duty, ms)))
	return fmt.Sprintf("running for %d ms", applied), nil
}

func (c *Console) stop(args []string) (string, error) {
	dev, err := c.target()
	if err != nil {
		return "", err
	}
	dev.Enable(0)
	return "stopped", nil
}

func (c *Console) remaining(args []string) (string, error) {
	dev, err := c.target()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(dev.Remaining()) + " ms", nil
}

func (c *Console) attr(name string) func(args []string) (string, error) {
	return func(args []string) (string, error) {
		a, err := c.reg.Attribute(c.device, name)
		if err != nil {
			return "", err
		}
		if len(args) > 0 && a.Store != nil {
			a.Store(args[0])
		}
		return strings.TrimSpace(a.Show()), nil
	}
}

func (c *Console) status(args []string) (string, error) {
	dev, err := c.target()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: remaining=%dms", c.device, dev.Remaining())
	for _, name := range c.reg.Attributes(c.device) {
		if a, err := c.reg.Attribute(c.device, name); err == nil {
			fmt.Fprintf(&sb, " %s=%s", name, strings.TrimSpace(a.Show()))
		}
	}
	return sb.String(), nil
}

func (c *Console) devices(args []string) (string, error) {
	names := c.reg.Names()
	if len(names) == 0 {
		return "(none)", nil
	}
	return strings.Join(names, "\n"), nil
}
