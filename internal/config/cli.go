// Package config defines the command-line surface of padbridge.
package config

import (
	"github.com/Alia5/padbridge/internal/cmd"
	"github.com/Alia5/padbridge/internal/log"
)

// CLI is the root kong model. Every value can also come from a config file
// or a PADBRIDGE_* environment variable.
type CLI struct {
	ConfigFile string     `name:"config" help:"Path to a JSON, YAML or TOML config file" env:"PADBRIDGE_CONFIG"`
	Log        log.Config `embed:"" prefix:"log."`

	Run     cmd.Run            `cmd:"" help:"Bridge the controller to virtual keyboard and mouse input"`
	Replay  cmd.Replay         `cmd:"" help:"Feed a recorded capture through the translator"`
	Ports   cmd.Ports          `cmd:"" help:"List serial ports"`
	Config  cmd.ConfigCommand  `cmd:"" help:"Configuration helpers"`
	Service cmd.ServiceCommand `cmd:"" help:"Manage the padbridge system service"`
}
