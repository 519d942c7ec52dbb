package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/go-gotop/igkit/broker"
	"github.com/go-gotop/igkit/broker/kafka"
	"github.com/go-gotop/igkit/broker/nats"
	"github.com/go-gotop/igkit/broker/redis"
	"github.com/go-gotop/igkit/config"
	center "github.com/go-gotop/igkit/cust/log"
	"github.com/go-gotop/igkit/limiter/wslimiter"
	"github.com/go-gotop/igkit/push/lightstreamer"
	"github.com/go-gotop/igkit/requests/ighttp"
	"github.com/go-gotop/igkit/sampler"
	"github.com/go-gotop/igkit/sampler/bytime"
	"github.com/go-gotop/igkit/session"
	"github.com/go-gotop/igkit/streammanager"
	"github.com/go-gotop/igkit/streammanager/igstream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := center.NewLogger(center.Config{
		Env:      cfg.Log.Env,
		Service:  cfg.Log.Service,
		Addr:     cfg.Log.RedisAddr,
		Password: cfg.Log.RedisPassword,
		DB:       cfg.Log.RedisDB,
	})
	if err := run(cfg, logger); err != nil {
		log.NewHelper(logger).Errorf("igstream exited: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger log.Logger) error {
	helper := log.NewHelper(logger)

	httpOpts := []ighttp.Option{ighttp.Demo(cfg.IG.Demo), ighttp.APIKey(cfg.IG.APIKey)}
	if cfg.IG.BaseURL != "" {
		httpOpts = append(httpOpts, ighttp.BaseUrl(cfg.IG.BaseURL))
	}
	if cfg.IG.Proxy != "" {
		httpOpts = append(httpOpts, ighttp.ProxyURL(cfg.IG.Proxy))
	}
	cli := ighttp.NewClient(httpOpts...)

	loginCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	sess, err := session.Login(loginCtx, cli, cfg.IG.APIKey, cfg.IG.Identifier, cfg.IG.Password)
	cancel()
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	helper.Infof("logged in, account %s, currency %s", sess.AccountID(), sess.Currency())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sess.Logout(ctx); err != nil {
			helper.Warnf("logout failed: %v", err)
		}
	}()

	pub, err := newPublisher(cfg.Broker, logger)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
	}

	opts := []igstream.Option{
		igstream.WithLogger(logger),
		igstream.WithReconnect(cfg.ReconnectEnabled()),
		igstream.WithReconnectDelay(cfg.Stream.ReconnectDelay),
	}
	if cfg.Stream.AdapterSet != "" {
		opts = append(opts, igstream.WithAdapterSet(cfg.Stream.AdapterSet))
	}
	if limits := cfg.PeriodLimits(); len(limits) > 0 {
		l, err := wslimiter.NewWsLimiter(limits...)
		if err != nil {
			return err
		}
		opts = append(opts, igstream.WithConnLimiter(l))
	}

	m := igstream.NewManager(sess, lightstreamer.Factory(lightstreamer.WithLogger(logger)), opts...)
	if err := m.Start(context.Background()); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer m.Stop()

	cb := logUpdates(logger)
	if pub != nil {
		cb = broker.Forward(pub, cfg.Broker.Topic, logger)
	}
	if err := subscribeAll(m, cfg.Subscriptions, cb, logger); err != nil {
		return err
	}
	helper.Infof("streaming %d subscriptions, state %s", len(m.Subscriptions()), m.State())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	helper.Info("shutting down...")
	return nil
}

func newPublisher(cfg config.BrokerConfig, logger log.Logger) (broker.Publisher, error) {
	switch cfg.Type {
	case config.BrokerKafka:
		return kafka.NewPublisher(cfg.Addrs, kafka.WithLogger(logger)), nil
	case config.BrokerRedis:
		return redis.NewPublisher(redis.NewRedisClient(cfg.Addrs[0], cfg.Password, cfg.DB)), nil
	case config.BrokerNats:
		return nats.NewPublisher(strings.Join(cfg.Addrs, ","),
			nats.WithLogger(logger),
			nats.WithName("igstream"),
			nats.WithSubjectPrefix(cfg.SubjectPrefix),
		)
	default:
		return nil, nil
	}
}

// subscriber 是 igstream.Manager 的订阅入口
type subscriber interface {
	SubscribePrice(epic string, fields []string, cb streammanager.Callback) error
	SubscribeAccount(fields []string, cb streammanager.Callback) error
	SubscribeTrade(fields []string, cb streammanager.Callback) error
	SubscribeChartTick(epic string, fields []string, cb streammanager.Callback) error
	SubscribeChartCandle(epic string, scale streammanager.Scale, fields []string, cb streammanager.Callback) error
}

func subscribeAll(m subscriber, subs []config.SubscriptionConfig, cb streammanager.Callback, logger log.Logger) error {
	for _, s := range subs {
		var err error
		switch s.Type {
		case config.SubPrice:
			err = m.SubscribePrice(s.Epic, s.Fields, cb)
		case config.SubAccount:
			err = m.SubscribeAccount(s.Fields, cb)
		case config.SubTrade:
			err = m.SubscribeTrade(s.Fields, cb)
		case config.SubChartTick:
			tickCb := cb
			if d := s.SampleDuration(); d > 0 {
				tickCb = sampler.Callback(bytime.NewByTime(d.Milliseconds()), cb, logger)
			}
			err = m.SubscribeChartTick(s.Epic, s.Fields, tickCb)
		case config.SubChartCandle:
			err = m.SubscribeChartCandle(s.Epic, streammanager.Scale(s.Scale), s.Fields, cb)
		default:
			err = fmt.Errorf("unknown subscription type '%s'", s.Type)
		}
		if err != nil {
			return fmt.Errorf("subscribe %s %s: %w", s.Type, s.Epic, err)
		}
	}
	return nil
}

func logUpdates(logger log.Logger) streammanager.Callback {
	helper := log.NewHelper(logger)
	return func(key streammanager.StreamKey, fields streammanager.Fields) {
		pairs := make([]string, 0, len(fields))
		for name := range fields {
			pairs = append(pairs, name+"="+fields.String(name))
		}
		helper.Infof("%s %s", key, strings.Join(pairs, " "))
	}
}
