// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports one.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction. A standalone server cannot run
// transactions; there fn runs again without one and the caller's own
// compensation is the only rollback. A nil logger uses zap.L().
//
// fn may be invoked more than once (transient errors are retried), so it
// must reset any state it collects at the start of each call.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = zap.L()
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			logger.Warn("transactions unavailable; running without one", zap.Error(err))
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		logger.Warn("transactions unavailable; running without one", zap.Error(err))
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err means the server cannot run
// transactions or sessions (standalone mongod, some managed offerings).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(words ...string) bool {
		for _, w := range words {
			if !strings.Contains(msg, w) {
				return false
			}
		}
		return true
	}
	return has("transaction", "replica set") ||
		has("transaction", "session") ||
		has("transaction", "not supported") ||
		has("session", "not supported") ||
		has("illegal operation")
}
