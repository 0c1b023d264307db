// Package temporal builds Temporal client options and the claim-check data
// converter from process configuration.
package temporal

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	tlog "go.temporal.io/sdk/log"

	"wealth/internal/platform/config"
)

// LoadTLS reads a PEM client certificate and key. The key may be PKCS#1, PKCS#8 or EC.
func LoadTLS(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load temporal client certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientOptions maps cfg onto client.Options. dc may be nil for the SDK default converter.
func ClientOptions(cfg config.TemporalConfig, logger *slog.Logger, dc converter.DataConverter) (client.Options, error) {
	opts := client.Options{
		HostPort:      cfg.Address,
		Namespace:     cfg.Namespace,
		DataConverter: dc,
	}
	if logger != nil {
		opts.Logger = tlog.NewStructuredLogger(logger)
	}
	if cfg.TLSEnabled() {
		tlsCfg, err := LoadTLS(cfg.CertPath, cfg.KeyPath)
		if err != nil {
			return client.Options{}, err
		}
		opts.ConnectionOptions = client.ConnectionOptions{TLS: tlsCfg}
	}
	return opts, nil
}

// Dial connects to the Temporal frontend.
func Dial(ctx context.Context, cfg config.TemporalConfig, logger *slog.Logger, dc converter.DataConverter) (client.Client, error) {
	opts, err := ClientOptions(cfg, logger, dc)
	if err != nil {
		return nil, err
	}
	c, err := client.DialContext(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", cfg.Address, err)
	}
	return c, nil
}

// HealthCheck adapts c to a readiness probe.
func HealthCheck(c client.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &client.CheckHealthRequest{})
		return err
	}
}
