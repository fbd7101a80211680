// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main contains bridge main function to start the WaveNode
// telemetry bridge service.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/n3bkv/WaveNode-to-MQTT/internal"
	"github.com/n3bkv/WaveNode-to-MQTT/internal/server"
	httpserver "github.com/n3bkv/WaveNode-to-MQTT/internal/server/http"
	wblog "github.com/n3bkv/WaveNode-to-MQTT/logger"
	"github.com/n3bkv/WaveNode-to-MQTT/wavenode"
	"github.com/n3bkv/WaveNode-to-MQTT/wavenode/api"
	brokermqtt "github.com/n3bkv/WaveNode-to-MQTT/wavenode/mqtt"
	"github.com/n3bkv/WaveNode-to-MQTT/wavenode/udp"
	"golang.org/x/sync/errgroup"
)

const (
	svcName        = "wavenode-bridge"
	envPrefixHTTP  = "WB_BRIDGE_HTTP_"
	envPrefixUDP   = "WB_BRIDGE_UDP_"
	defSvcHTTPPort = "9100"
	defSvcUDPPort  = "9911"
)

type config struct {
	LogLevel         string        `env:"WB_BRIDGE_LOG_LEVEL"        envDefault:"info"`
	BrokerURL        string        `env:"WB_MQTT_URL"                envDefault:"tcp://localhost:1883"`
	BrokerUser       string        `env:"WB_MQTT_USER"               envDefault:""`
	BrokerPass       string        `env:"WB_MQTT_PASS"               envDefault:""`
	BrokerClientID   string        `env:"WB_MQTT_CLIENT_ID"          envDefault:"wavenode-bridge"`
	BrokerTimeout    time.Duration `env:"WB_MQTT_TIMEOUT"            envDefault:"30s"`
	ReconnectBackoff time.Duration `env:"WB_MQTT_RECONNECT_BACKOFF"  envDefault:"3s"`
	TopicPrefix      string        `env:"WB_TOPIC_PREFIX"            envDefault:"wavenode"`
	Retain           bool          `env:"WB_RETAIN"                  envDefault:"false"`
	DirectMode       bool          `env:"WB_DIRECT_MODE"             envDefault:"false"`
	UpdateMode       uint          `env:"WB_UPDATE_MODE"             envDefault:"1"`
	MinInterval      time.Duration `env:"WB_MIN_PUBLISH_INTERVAL"    envDefault:"500ms"`
	MinDelta         float64       `env:"WB_MIN_PUBLISH_DELTA"       envDefault:"0.1"`
	DeviceAddr       string        `env:"WB_DEVICE_ADDR"             envDefault:""`
	ProbeBroadcast   string        `env:"WB_DEVICE_PROBE_ADDR"       envDefault:"255.255.255.255:9988"`
	ProbeTimeout     time.Duration `env:"WB_DEVICE_PROBE_TIMEOUT"    envDefault:"2s"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load %s configuration : %s", svcName, err)
	}

	logger, err := wblog.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %s", err.Error())
	}

	var exitCode int
	defer wblog.ExitWithError(&exitCode)

	httpServerConfig := server.Config{Port: defSvcHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err))
		exitCode = 1
		return
	}

	udpServerConfig := server.Config{Port: defSvcUDPPort}
	if err := env.ParseWithOptions(&udpServerConfig, env.Options{Prefix: envPrefixUDP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s UDP server configuration : %s", svcName, err))
		exitCode = 1
		return
	}

	client := brokermqtt.NewClient(brokermqtt.ClientConfig{
		URL:      cfg.BrokerURL,
		Username: cfg.BrokerUser,
		Password: cfg.BrokerPass,
		ClientID: cfg.BrokerClientID,
		Timeout:  cfg.BrokerTimeout,
	}, logger)

	pub := brokermqtt.NewPublisher(client, cfg.ReconnectBackoff, logger)
	if err := pub.Connect(); err != nil {
		// Not fatal: the reconnect loop is armed and dispatch proceeds,
		// dropping publishes until the broker comes up.
		logger.Warn(fmt.Sprintf("initial MQTT connection failed: %s", err))
	}
	defer pub.Close()

	svc := newService(pub, cfg, logger)

	if cfg.DirectMode {
		if err := requestDirectFeed(ctx, cfg, udpServerConfig, logger); err != nil {
			logger.Error(fmt.Sprintf("failed to request direct telemetry feed: %s", err))
			exitCode = 1
			return
		}
	}

	us := udp.New(ctx, cancel, svcName, udpServerConfig, svc, logger)
	hs := httpserver.New(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svcName), logger)

	g.Go(func() error {
		return us.Start()
	})

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs, us)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service terminated: %s", svcName, err))
	}
}

func newService(pub *brokermqtt.Publisher, cfg config, logger *slog.Logger) wavenode.Service {
	throttle := wavenode.NewThrottle(cfg.MinInterval, cfg.MinDelta, nil)

	svc := wavenode.New(pub, throttle, cfg.TopicPrefix, cfg.Retain)
	svc = api.LoggingMiddleware(svc, logger)
	counter, latency := internal.MakeMetrics("wavenode_bridge", "api")
	svc = api.MetricsMiddleware(svc, counter, latency)

	return svc
}

func requestDirectFeed(ctx context.Context, cfg config, udpCfg server.Config, logger *slog.Logger) error {
	chain := udp.NewChain(
		udp.Static{Address: cfg.DeviceAddr, Logger: logger},
		udp.Probe{Broadcast: cfg.ProbeBroadcast, Timeout: cfg.ProbeTimeout, Logger: logger},
	)

	ep, err := chain.Discover(ctx)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("discovered device endpoint at %s", ep.Addr))

	listenAddr := fmt.Sprintf("%s:%s", udpCfg.Host, udpCfg.Port)
	return udp.RequestRedirect(ctx, ep, listenAddr, udp.UpdateMode(cfg.UpdateMode))
}
