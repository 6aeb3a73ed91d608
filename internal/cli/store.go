package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	_ "github.com/ncruces/go-sqlite3/driver" // SQLite driver for database/sql
	_ "github.com/ncruces/go-sqlite3/embed"  // Embed SQLite WASM binary

	"github.com/unkn0wn-root/rowcache"
	"github.com/unkn0wn-root/rowcache/internal/config"
	"github.com/unkn0wn-root/rowcache/store/dynamostore"
	"github.com/unkn0wn-root/rowcache/store/sqlstore"
)

func openStore(ctx context.Context, cfg config.StoreConfig) (rowcache.RecordStore, func() error, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s, err := sqlstore.New(db, sqlstore.SQLite)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil

	case "dynamodb":
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		s, err := dynamostore.New(dynamostore.Config{Client: client, ConsistentRead: cfg.ConsistentRead})
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
