// Command lambda loads the object named by an S3 put notification.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/diewo77/go-sales-loader/internal/batch"
	"github.com/diewo77/go-sales-loader/internal/config"
	"github.com/diewo77/go-sales-loader/internal/db"
	"github.com/diewo77/go-sales-loader/internal/ingest"
	"github.com/diewo77/go-sales-loader/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.Fatal("Failed to load AWS config", zap.Error(err))
	}

	// The connection pool outlives invocations of a warm container.
	conn, err := db.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	in := ingest.NewIngestor(conn, cfg.Loader, ingest.ContractFixedIndex, log, nil)
	h := batch.NewEventHandler(s3.NewFromConfig(awsCfg), in, log)
	lambda.Start(h.Handle)
}
