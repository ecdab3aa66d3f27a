// Command sitetrack-seed loads users and projects from a YAML file.
//
//	sitetrack-seed -file seed.yaml -mongo_uri mongodb://localhost:27017 -mongo_database sitetrack
//
// Users are matched by mobile and projects by name, so re-running a file
// only adds what is missing.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/indexes"
	"github.com/dalemusser/sitetrack/internal/app/system/seed"
	"github.com/dalemusser/sitetrack/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "seed.yaml", "path to the seed YAML file")
	uri := flag.String("mongo_uri", envOr("SITETRACK_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	dbName := flag.String("mongo_database", envOr("SITETRACK_MONGO_DATABASE", "sitetrack"), "MongoDB database name")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*file, *uri, *dbName, *timeout, logger); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

func run(path, uri, dbName string, timeout time.Duration, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := seed.Parse(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(dbName)
	if err := validators.EnsureAll(ctx, db); err != nil {
		return err
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		return err
	}

	res, err := seed.Apply(ctx, db, doc, logger)
	if err != nil {
		return err
	}
	logger.Info("seed complete",
		zap.Int("users_created", res.UsersCreated),
		zap.Int("users_existing", res.UsersExisting),
		zap.Int("projects_created", res.ProjectsCreated),
		zap.Int("projects_skipped", res.ProjectsSkipped))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
