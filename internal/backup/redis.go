package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sealkit/internal/domain"
)

const (
	defaultKeyPrefix = "sealkit:backup:"
	maxReplaceTries  = 5
)

// Redis stores backups in a Redis hash per identity.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a Redis vault.
type RedisOption func(*Redis)

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// NewRedis returns a vault on client. The client's lifecycle stays with the
// caller.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Dial parses a redis:// URL (or host:port), connects and pings.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (r *Redis) key(identity domain.Identity) string { return r.prefix + identity.String() }

func (r *Redis) Store(ctx context.Context, identity domain.Identity, id string, encryptedKey []byte) error {
	ok, err := r.client.HSetNX(ctx, r.key(identity), id, encryptedKey).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrBackupExists
	}
	return nil
}

func (r *Redis) Fetch(ctx context.Context, identity domain.Identity, id string) ([]byte, error) {
	b, err := r.client.HGet(ctx, r.key(identity), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrBackupNotFound
	}
	return b, err
}

func (r *Redis) Delete(ctx context.Context, identity domain.Identity, id string) error {
	n, err := r.client.HDel(ctx, r.key(identity), id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrBackupNotFound
	}
	return nil
}

func (r *Redis) DeleteAll(ctx context.Context, identity domain.Identity) error {
	return r.client.Del(ctx, r.key(identity)).Err()
}

// Replace swaps oldID for newID in one MULTI/EXEC, retried while concurrent
// writers invalidate the WATCH.
func (r *Redis) Replace(ctx context.Context, identity domain.Identity, oldID, newID string, encryptedKey []byte) error {
	key := r.key(identity)
	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, key, oldID).Result()
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrBackupNotFound
		}
		if newID != oldID {
			taken, err := tx.HExists(ctx, key, newID).Result()
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrBackupExists
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, key, oldID)
			pipe.HSet(ctx, key, newID, encryptedKey)
			return nil
		})
		return err
	}

	for range maxReplaceTries {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("replace backup: %w", redis.TxFailedErr)
}

// Compile-time assertion that Redis implements domain.BackupVault.
var _ domain.BackupVault = (*Redis)(nil)
