// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-tools/internal/server"
)

// shutdownGrace bounds in-flight requests after an interrupt.
const shutdownGrace = 10 * time.Second

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools to an MCP client over stdio",
		Long: `Serve every tool over the Model Context Protocol on stdin/stdout.
Stdout carries only protocol frames; logs always go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log.SetOutput(cmd.ErrOrStderr())

			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := server.NewMCPServer(app.Dispatcher, Version)
			errLog := log.New(cmd.ErrOrStderr(), "mcp: ", log.LstdFlags)
			return server.ServeStdio(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout(), errLog)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port  int
		token string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over a loopback HTTP API",
		Long: `Serve every tool over HTTP on 127.0.0.1.

  GET  /v1/tools            list tools
  GET  /v1/tools/{name}     describe one tool
  POST /v1/tools/{name}     invoke with a JSON object body
  GET  /v1/history          recent invocations
  GET  /health, /stats, /cache/stats; POST /cache/clear

Set server.token (or RIGRUN_TOOLS_SERVER_TOKEN) to require a bearer token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			scfg := server.Config{
				Port:           app.Config.Server.Port,
				Token:          app.Config.Server.Token,
				RequestsPerMin: app.Config.Server.RequestsPerMin,
				Version:        Version,
			}
			if cmd.Flags().Changed("port") {
				if port < 1 || port > 65535 {
					return newUsageError("--port", fmt.Sprint(port), "must be between 1 and 65535", "--port 8797")
				}
				scfg.Port = port
			}
			if cmd.Flags().Changed("token") {
				scfg.Token = token
			}
			if app.History != nil {
				scfg.History = app.History
			}

			srv := server.NewServer(app.Dispatcher, scfg)
			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()
			fmt.Fprintf(cmd.ErrOrStderr(), "%s listening on http://127.0.0.1:%d\n",
				SuccessStyle.Render("[OK]"), srv.Port())

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errCh
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port on 127.0.0.1 (default server.port)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (default server.token)")
	return cmd
}
