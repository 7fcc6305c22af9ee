package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/gatekeepbot/gatekeep/pkg/app"
)

// program adapts app.Run to the service manager lifecycle.
type program struct {
	cfgPath string
	errCh   chan error
}

func (p *program) Start(service.Service) error {
	go func() {
		p.errCh <- app.Run(app.RunParams{
			ConfigPath: p.cfgPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
		})
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	// app.Run exits on SIGTERM; raise it and wait for the run loop.
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		return err
	}
	return <-p.errCh
}

func serviceConfig(cfgPath string) *service.Config {
	args := []string{"service", "run"}
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	return &service.Config{
		Name:        "gatekeep",
		DisplayName: "Gatekeep",
		Description: "Join-verification bot for group chats",
		Arguments:   args,
	}
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage gatekeep as a system service",
	}

	var cfgPath string
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")

	newService := func() (service.Service, *program, error) {
		prg := &program{cfgPath: cfgPath, errCh: make(chan error, 1)}
		svc, err := service.New(prg, serviceConfig(cfgPath))
		if err != nil {
			return nil, nil, fmt.Errorf("service init: %w", err)
		}
		return svc, prg, nil
	}

	for _, action := range []string{"install", "uninstall", "start", "stop"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			RunE: func(c *cobra.Command, _ []string) error {
				svc, _, err := newService()
				if err != nil {
					return err
				}
				if err := service.Control(svc, c.Use); err != nil {
					return fmt.Errorf("service %s: %w", c.Use, err)
				}
				fmt.Printf("Service %s: done\n", c.Use)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (invoked by the manager itself)",
		RunE: func(*cobra.Command, []string) error {
			svc, _, err := newService()
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})

	return cmd
}
