package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogging(cfg)

	if cfg.Stdio {
		if err := runStdio(cfg); err != nil {
			log.WithError(err).Fatal("Stdio server failed")
		}
		return
	}
	if err := runHTTP(cfg); err != nil {
		log.WithError(err).Fatal("HTTP server failed")
	}
}

func configureLogging(cfg Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if cfg.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	// In stdio mode stdout belongs to the MCP transport
	if cfg.Stdio {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(os.Stdout)
	}
}

// runHTTP serves the MCP endpoint over streamable HTTP until SIGINT/SIGTERM,
// then drains in-flight requests.
func runHTTP(cfg Config) error {
	proxy := newProxyServer(cfg)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: proxy.handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"listen": cfg.Listen, "path": mcpPath}).Info("Starting MCP HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// runStdio serves a single MCP session over stdin/stdout using the
// connection supplied via flags or environment.
func runStdio(cfg Config) error {
	conn, err := cfg.stdioConnection()
	if err != nil {
		return err
	}
	proxy := newProxyServer(cfg)
	server := proxy.newToolServer(conn)

	log.WithField("jenkins", conn.Host()).Info("Starting MCP server over stdio")
	var transport mcp.Transport = &mcp.StdioTransport{}
	if cfg.Debug {
		transport = &mcp.LoggingTransport{Transport: transport, Writer: os.Stderr}
	}
	return server.Run(context.Background(), transport)
}
