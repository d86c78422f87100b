package lock

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "arisync:lock:"

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type Redis struct {
	client *redis.Client
	opts   options
}

// ParseURL turns tcp://[:password@]host:port[/db] into client options.
func ParseURL(addr string) (*redis.Options, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	var password string
	if u.User != nil {
		password, _ = u.User.Password()
	}

	db := 0
	if len(u.Path) > 1 {
		db, err = strconv.Atoi(u.Path[1:])
		if err != nil {
			return nil, fmt.Errorf("parse redis db %q: %w", u.Path[1:], err)
		}
	}

	network := u.Scheme
	if network == "" || network == "redis" {
		network = "tcp"
	}

	//nolint:exhaustruct
	return &redis.Options{
		Network:  network,
		Addr:     u.Host,
		Password: password,
		DB:       db,
	}, nil
}

func NewRedis(ctx context.Context, addr string, opts ...Option) (*Redis, error) {
	clientOpts, err := ParseURL(addr)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(clientOpts)

	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, opts: newOptions(opts)}, nil
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	token := newToken()
	full := keyPrefix + key

	err := acquire(ctx, r.opts.wait, func() (bool, error) {
		ok, err := r.client.SetNX(ctx, full, token, r.opts.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("acquire %s: %w", full, err)
		}

		return ok, nil
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{full}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", full, err)
		}

		return nil
	}, nil
}

func (r *Redis) Close() error {
	return r.client.Close() //nolint:wrapcheck
}
