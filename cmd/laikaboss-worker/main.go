package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	laikaboss "github.com/Nigelli/laikaboss"
)

var (
	log *zap.Logger

	frameworkPath string
	sidecarPath   string
	listenAddr    string

	minioEndpoint string
	minioBucket   string
	minioAccess   string
	minioSecret   string

	mysqlDSN    string
	postgresDSN string
)

func init() {
	logger, _ := zap.NewProduction()
	log = logger
}

var rootCmd = &cobra.Command{
	Use:   "laikaboss-worker",
	Short: "HTTP front-end that submits files to the scanning engine and persists results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.Flags().StringVar(&frameworkPath, "config", "laikaboss.ini", "framework config path")
	rootCmd.Flags().StringVar(&sidecarPath, "rules", "dispatch.yaml", "dispatch/module/disposition sidecar path")
	rootCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	rootCmd.Flags().StringVar(&minioEndpoint, "minio-endpoint", "", "S3-compatible endpoint (empty disables result/submission persistence)")
	rootCmd.Flags().StringVar(&minioBucket, "minio-bucket", "laikaboss", "bucket name for results and submissions")
	rootCmd.Flags().StringVar(&minioAccess, "minio-access-key", "", "S3 access key")
	rootCmd.Flags().StringVar(&minioSecret, "minio-secret-key", "", "S3 secret key")
	rootCmd.Flags().StringVar(&mysqlDSN, "mysql-dsn", "", "MySQL DSN for the scan ledger (takes precedence over --postgres-dsn)")
	rootCmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "Postgres DSN for the scan ledger")
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Sugar().Errorf("panic: %v", r)
			os.Exit(1)
		}
		_ = log.Sync()
	}()

	if err := rootCmd.Execute(); err != nil {
		log.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := laikaboss.New(frameworkPath, sidecarPath, laikaboss.Options{Logger: log})
	if err != nil {
		return err
	}

	var store *ObjectStore
	if minioEndpoint != "" {
		store, err = NewObjectStore(ctx, minioEndpoint, minioBucket, minioAccess, minioSecret, false)
		if err != nil {
			return err
		}
	}

	var ledger *Ledger
	switch {
	case mysqlDSN != "":
		ledger, err = ConnectMySQL(ctx, mysqlDSN)
	case postgresDSN != "":
		ledger, err = ConnectPostgres(ctx, postgresDSN)
	}
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
		if err := ledger.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	handler := NewServer(engine, store, ledger, log)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", listenAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
