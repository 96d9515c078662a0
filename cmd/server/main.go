// Command tk-server starts the TOTP keeper gRPC server.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	pb "github.com/and161185/totp-keeper/api/totpkeeper/v1"
	"github.com/and161185/totp-keeper/internal/config"
	"github.com/and161185/totp-keeper/internal/crypto"
	"github.com/and161185/totp-keeper/internal/limiter"
	"github.com/and161185/totp-keeper/internal/migrate"
	"github.com/and161185/totp-keeper/internal/otp"
	"github.com/and161185/totp-keeper/internal/repository/postgres"
	grpcserver "github.com/and161185/totp-keeper/internal/server/grpc"
	"github.com/and161185/totp-keeper/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// main loads configuration, runs migrations, and starts a TLS-enabled gRPC server.
func main() {
	envFile := flag.String("env-file", "", "optional dotenv file")
	dev := flag.Bool("dev", false, "enable server reflection (dev only)")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		// logger not built yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		logger = zap.Must(zap.NewProduction())
		logger.Warn("bad log level, using info", zap.String("level", cfg.LogLevel))
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.ListenAddr),
	)

	key, err := crypto.DeriveKey(cfg.SecretKey)
	if err != nil {
		logger.Fatal("derive totp encryption key", zap.Error(err))
	}
	cipher, err := crypto.NewCipher(cfg.EncryptionMethod, key)
	if err != nil {
		logger.Fatal("totp cipher", zap.Error(err))
	}

	creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		logger.Fatal("failed to load TLS cert/key", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.DatabaseDSN, postgres.ConnectOptions{
		Attempts: cfg.DBConnectAttempts,
		Backoff:  cfg.DBConnectBackoff,
	}, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer db.Close()

	if err := migrate.Up(ctx, cfg.DatabaseDSN, logger); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	eventRepo := postgres.NewEventRepo()
	txm := postgres.NewTxManager(db, logger)

	lim := limiter.NewPG(db.Pool, cfg.LimiterWindow, cfg.LimiterMaxFails, cfg.LimiterBlockFor)

	// Services
	mfaSvc := service.NewMFAService(service.MFADeps{
		Users:    userRepo,
		Events:   eventRepo,
		Tx:       txm,
		Cipher:   cipher,
		Keys:     otp.NewGenerator(cfg.TOTPIssuer),
		Verifier: otp.NewVerifier(cfg.TOTPSkew),
		Limiter:  lim,
		Logger:   logger,
	})
	jwtKey := []byte(cfg.JWTKey)
	authSvc := service.NewAuthService(userRepo, jwtKey, cfg.AccessTTL, lim, mfaSvc)

	// gRPC server with interceptors
	s := grpc.NewServer(
		grpc.Creds(creds),
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(jwtKey,
				pb.FullMethodRegister,
				pb.FullMethodLogin,
				healthpb.Health_Check_FullMethodName,
			),
		),
	)

	app := grpcserver.New(authSvc, mfaSvc, logger)
	pb.RegisterTOTPKeeperServer(s, app)

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if *dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening (TLS)", zap.String("addr", cfg.ListenAddr))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
