package cmd

import (
	"log/slog"
)

// ServiceCommand manages the background service that runs "padbridge run".
type ServiceCommand struct {
	Install   ServiceInstall   `cmd:"" help:"Install and start padbridge as a system service"`
	Uninstall ServiceUninstall `cmd:"" help:"Stop and remove the padbridge system service"`
}

type ServiceInstall struct {
	Args []string `arg:"" optional:"" help:"Extra arguments passed to 'padbridge run'"`
}

type ServiceUninstall struct{}

// Run is called by Kong when the service install command is executed.
func (s *ServiceInstall) Run(logger *slog.Logger) error {
	return install(logger, s.Args)
}

// Run is called by Kong when the service uninstall command is executed.
func (s *ServiceUninstall) Run(logger *slog.Logger) error {
	return uninstall(logger)
}
