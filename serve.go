package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PPicture/data/database/mgo/mongoutil"
	"PPicture/global"
	"PPicture/logger"
	"PPicture/middleware"
	midsec "PPicture/middleware/security"
	"PPicture/service/activity"
	"PPicture/service/collab"
	"PPicture/service/collab/handlers"
	"PPicture/service/directory"
	"PPicture/service/identity"
	"PPicture/service/storage"
	rediscli "PPicture/service/storage/redis"
	"PPicture/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the collaborative editing gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// closers 按注册的逆序关闭
type closers []func(ctx context.Context)

func (c *closers) add(f func(ctx context.Context)) { *c = append(*c, f) }

func (c closers) run(ctx context.Context) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i](ctx)
	}
}

func serve(ctx context.Context, cfg *global.AppConfig) error {
	var res closers
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		res.run(cctx)
	}()

	// 用户资料：mongo + redis 缓存
	mcli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		AuthSource:  cfg.Mongo.AuthSource,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return err
	}
	res.add(func(ctx context.Context) {
		if err := mcli.Close(ctx); err != nil {
			logger.Warn("close mongo", zap.Error(err))
		}
	})

	rdb, err := rediscli.New(ctx, rediscli.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	res.add(func(context.Context) { _ = rdb.Close() })

	pool, err := directory.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return err
	}
	res.add(func(context.Context) { pool.Close() })
	dir := directory.New(pool)

	users := identity.NewCachedStore(identity.NewMongoUserStore(mcli.GetDB()), rdb, cfg.Auth.CacheTTL)
	provider := identity.NewProvider(jwtOptions(cfg.Auth), users, dir)

	nodeName, _ := os.Hostname()
	publisher, pubCloser, err := activity.New(cfg.Activity, nodeName)
	if err != nil {
		return err
	}
	if pubCloser != nil {
		res.add(func(context.Context) { closeQuiet("activity publisher", pubCloser) })
	}

	srv, err := collab.NewServer(collab.Conf{
		NodeID: cfg.NodeID,
		Pipeline: collab.PipelineConf{
			Workers: cfg.Collab.Workers,
			Buffer:  cfg.Collab.Buffer,
		},
		Conn: collab.ConnConf{
			SendQueue:       cfg.Collab.SendQueue,
			WriteTimeout:    cfg.Collab.WriteTimeout,
			PingInterval:    cfg.Collab.PingInterval,
			PongWait:        cfg.Collab.PongWait,
			MaxMessageBytes: cfg.Collab.MaxMessageBytes,
		},
		CloseWait: cfg.Server.ShutdownTimeout,
	}, collab.Deps{
		Identity:  provider,
		Directory: dir,
		Presence:  storage.NewRedisPresence(rdb, cfg.Collab.PresenceTTL),
		Activity:  publisher,
		Metrics:   collab.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}
	handlers.RegisterAll(srv)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	safe.Go("presence keepalive", func() {
		storage.KeepAlive(bgCtx, rdb, cfg.Collab.PresenceTTL, srv.Registry().Pictures)
	})

	// 健康检查
	hs := health.NewServer()
	gs := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	lis, err := net.Listen("tcp", cfg.Server.GrpcAddr)
	if err != nil {
		return err
	}
	safe.Go("grpc health", func() {
		if err := gs.Serve(lis); err != nil {
			logger.Error("grpc health server stopped", zap.Error(err))
		}
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           newRouter(cfg, srv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	safe.Go("http server", func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	logger.Info("ppicture serving",
		zap.String("http", cfg.Server.HTTPAddr),
		zap.String("grpc", cfg.Server.GrpcAddr),
		zap.String("ws", cfg.Server.WsPath),
		zap.String("activity", cfg.Activity.Driver))

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("http server failed", zap.Error(runErr))
	}

	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("collab shutdown", zap.Error(err))
	}
	bgCancel()
	gs.GracefulStop()
	return runErr
}

func newRouter(cfg *global.AppConfig, srv *collab.Server) *gin.Engine {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	authOpts := midsec.DefaultOptions()
	if cfg.Auth.CookieName != "" {
		authOpts.CookieName = cfg.Auth.CookieName
	}
	middleware.Manager().Add("accesslog", middleware.AccessLog("/healthz", "/metrics"))
	r.Use(middleware.Manager().Use())

	// 凭证缺失不在这里拦截，握手鉴权统一回 JSON 错误
	ws := collab.NewWSHandler(srv, midsec.TokenFrom, middleware.OriginChecker(cfg.Server.AllowedOrigins))
	middleware.GET(r, cfg.Server.WsPath, ws.HandleWS, middleware.RouteOpt{IsAuth: true, Auth: authOpts})

	r.GET("/healthz", func(c *gin.Context) {
		if srv.Closing() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "closing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": srv.Registry().Total(),
			"queue":    srv.Pipeline().Len(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func closeQuiet(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close "+name, zap.Error(err))
	}
}
