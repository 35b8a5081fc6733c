package main

import (
	"context"
	"flag"
	"log/slog"

	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/components/telemetry"
	"campusdual-backend/internal/config"
	"campusdual-backend/internal/portal"
	"campusdual-backend/internal/ratelimit"
	"campusdual-backend/internal/service"
	"campusdual-backend/internal/session"
	"campusdual-backend/pkg/configutil"
	"campusdual-backend/pkg/serviceutil"
)

type Config struct {
	ListenPort int              `json:"listen_port"`
	Verbose    bool             `json:"verbose"`
	Session    config.Session   `json:"session"`
	Portal     config.Portal    `json:"portal"`
	Ratelimit  config.Ratelimit `json:"ratelimit"`
	Telemetry  telemetry.Config `json:"telemetry"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "The config file to read.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 8080
	}

	telemetry.InitSlog(*verbose || cfg.Verbose)
	t, err := telemetry.Setup(ctx, "campusd", cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	var tel telemetry.API = telemetry.SlogAPI{}
	otelAPI, err := telemetry.NewOtelAPI(tel)
	if err != nil {
		serviceutil.Fatal("init otel telemetry api", err)
	}
	tel = otelAPI

	svc, err := initService(ctx, cfg, tel)
	if err != nil {
		serviceutil.Fatal("init service", err)
	}

	err = serviceutil.StartHttpServer(ctx, cfg.ListenPort, svc.Handler())
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
	slog.Info("shut down")
}

func initService(ctx context.Context, cfg Config, tel telemetry.API) (*service.Service, error) {
	keys, err := cfg.Session.Keys()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.Session.TTL()
	if err != nil {
		return nil, err
	}
	portalOpts, err := cfg.Portal.Options()
	if err != nil {
		return nil, err
	}
	signinQuota, authenticatedQuota, err := cfg.Ratelimit.Quotas()
	if err != nil {
		return nil, err
	}
	reclaim, err := cfg.Ratelimit.Reclaim()
	if err != nil {
		return nil, err
	}

	timeAPI := chrono.NewStandardTime()
	client, err := portal.NewClient(portalOpts, timeAPI, tel)
	if err != nil {
		return nil, err
	}

	signin := ratelimit.NewGovernor("signin", signinQuota, timeAPI, tel)
	authenticated := ratelimit.NewGovernor("authenticated", authenticatedQuota, timeAPI, tel)
	go signin.Run(ctx, reclaim)
	go authenticated.Run(ctx, reclaim)

	return service.NewService(
		client,
		session.NewCodec(keys, ttl, timeAPI),
		signin,
		authenticated,
		service.WithTelemetryAPI(tel),
		service.WithTimeAPI(timeAPI),
		service.WithTrustedForwardedFor(cfg.Ratelimit.TrustForwardedFor),
	), nil
}
