// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package server is the command line entry point for password-hook.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go.pinniped.dev/passwordhook/internal/config"
	"go.pinniped.dev/passwordhook/internal/crypto/ptls"
	"go.pinniped.dev/passwordhook/internal/metrics"
	"go.pinniped.dev/passwordhook/internal/plog"
	"go.pinniped.dev/passwordhook/internal/pversion"
	"go.pinniped.dev/passwordhook/internal/upstreamldap"
)

const (
	readHeaderTimeout = 10 * time.Second
	// allow in-flight directory checks to finish, they are bounded by the request timeout anyway
	shutdownGracePeriod = time.Minute
)

// App is an object that represents the password-hook application.
type App struct {
	cmd *cobra.Command

	// CLI flags
	configPath   string
	logLevel     logLevelFlag
	printVersion bool
}

// New constructs a new App with command line args, stdout and stderr.
func New(ctx context.Context, args []string, stdout, stderr io.Writer) *App {
	app := &App{}
	app.addServerCommand(ctx, args, stdout, stderr)
	return app
}

// Run the server.
func (a *App) Run() error {
	return a.cmd.Execute()
}

// Create the server command and save it into the App.
func (a *App) addServerCommand(ctx context.Context, args []string, stdout, stderr io.Writer) {
	cmd := &cobra.Command{
		Use: `password-hook`,
		Long: "password-hook answers Okta password import inline hooks by checking\n" +
			"the submitted credential against an LDAP directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.printVersion {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), pversion.Get().String())
				return err
			}
			return a.runServer(ctx)
		},
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	addCommandlineFlagsToCommand(cmd, a)

	a.cmd = cmd
}

// Define the app's commandline flags.
func addCommandlineFlagsToCommand(cmd *cobra.Command, app *App) {
	cmd.Flags().StringVarP(
		&app.configPath,
		"config",
		"c",
		"",
		"path to an optional YAML configuration file, environment variables take precedence",
	)

	cmd.Flags().Var(
		&app.logLevel,
		"log-level",
		"overrides LOG_LEVEL, one of warning, info, debug, trace or all",
	)

	cmd.Flags().BoolVar(
		&app.printVersion,
		"version",
		false,
		"print the version and exit",
	)
}

func (a *App) runServer(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if a.logLevel.set {
		cfg.Log.Level = a.logLevel.level
	}

	if err := plog.ValidateAndSetLogLevelAndFormatGlobally(ctx, cfg.Log); err != nil {
		return fmt.Errorf("could not configure logging: %w", err)
	}

	info := pversion.Get()
	plog.Info("starting password-hook",
		"version", info.Version,
		"commit", info.Commit,
		"goVersion", info.GoVersion,
	)

	provider, err := newProvider(&cfg.LDAP)
	if err != nil {
		return err
	}
	checkDirectory(ctx, provider)

	recorder, metricsHandler := metrics.Init(cfg.Server.MetricsEnabled)
	handler := newRouter(cfg.Auth.Secret, provider, recorder, metricsHandler)

	//nolint:gosec // Intentionally binding to all network interfaces.
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("cannot create listener: %w", err)
	}
	defer func() { _ = l.Close() }()

	return serve(ctx, l, handler)
}

func newProvider(c *config.LDAP) (*upstreamldap.Provider, error) {
	host, protocol, err := upstreamldap.ParseURL(c.URL, c.StartTLS)
	if err != nil {
		return nil, fmt.Errorf("invalid LDAP_URL %q: %w", c.URL, err)
	}

	rootCAs, err := ptls.CertPoolFromFile(c.CABundlePath)
	if err != nil {
		return nil, fmt.Errorf("could not load LDAP CA bundle: %w", err)
	}

	return upstreamldap.New(upstreamldap.ProviderConfig{
		Host:               host,
		ConnectionProtocol: protocol,
		RootCAs:            rootCAs,
		BindUsername:       c.BindDN,
		BindPassword:       c.BindPassword,
		UserSearchBase:     c.BaseDN,
		DialTimeout:        c.DialTimeout,
		RequestTimeout:     c.RequestTimeout,
		Logger:             plog.New().WithName("upstreamldap"),
	}), nil
}

// checkDirectory only warns. The directory may come up after the hook, and every request fails closed until it does.
func checkDirectory(ctx context.Context, provider *upstreamldap.Provider) {
	c := provider.GetConfig()
	if err := provider.TestConnection(ctx); err != nil {
		plog.WarningErr("could not bind to the directory as the service account, requests will not be verified until this is fixed", err,
			"host", c.Host, "bindDN", c.BindUsername)
		return
	}
	plog.Info("directory service account bind succeeded", "host", c.Host, "bindDN", c.BindUsername)
}

// serve blocks until ctx is cancelled and in-flight requests have drained, or until the listener fails.
func serve(ctx context.Context, l net.Listener, handler http.Handler) error {
	// Request contexts outlive ctx by the grace period so that shutdown does not cancel directory checks immediately.
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBase()

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		plog.Info("server listening", "address", l.Addr().String())
		err := server.Serve(l)
		plog.Debug("server exited", "err", err)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		plog.Debug("server context cancelled", "err", gctx.Err())

		// allow a grace period for active connections to return to idle
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer shutdownCancel()
		defer cancelBase()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func signalCtx() context.Context {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()

		s := <-signalCh
		plog.Debug("saw signal", "signal", s)
	}()

	return ctx
}

func main() error { // return an error instead of plog.Fatal to allow defer statements to run
	defer plog.Setup()()

	return New(signalCtx(), os.Args[1:], os.Stdout, os.Stderr).Run()
}

// Main is the entrypoint of the password-hook binary.
func Main() {
	if err := main(); err != nil {
		plog.Fatal(err)
	}
}
