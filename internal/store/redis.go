package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"sealed.fyi/internal/models"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps each record as a hash with a gob-encoded body and the
// burn token as its own field so the burn script can compare it without
// decoding. Both conditional writes run as single Lua EVALs: one round
// trip, atomic on the server, no WATCH retries.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(options *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// consumeScript fetches and deletes in one atomic step, so two
// concurrent consumers cannot both see the record.
var consumeScript = redis.NewScript(`
	local data = redis.call('HGET', KEYS[1], 'data')
	if not data then
		return false
	end
	redis.call('DEL', KEYS[1])
	return data
`)

// burnScript deletes iff the stored burn token matches. It returns 1 in
// every branch: the store itself yields no oracle.
var burnScript = redis.NewScript(`
	local stored = redis.call('HGET', KEYS[1], 'burn')
	if stored and stored == ARGV[1] then
		redis.call('DEL', KEYS[1])
	end
	return 1
`)

func (r *RedisStore) Create(ctx context.Context, secret *models.Secret) error {
	data, err := encode(secret)
	if err != nil {
		return err
	}

	ttl := time.Until(secret.ExpiresAt)
	if ttl <= 0 {
		return ErrNotAvailable
	}

	key := secretKey(secret.ID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "burn", secret.BurnToken)
	pipe.Expire(ctx, key, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Consume(ctx context.Context, id string) (*models.Secret, error) {
	result, err := consumeScript.Run(ctx, r.client, []string{secretKey(id)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotAvailable
		}
		return nil, err
	}

	var data []byte
	switch v := result.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, errors.New("unexpected data type from script")
	}

	secret, err := decode(data)
	if err != nil {
		return nil, err
	}

	// The Redis TTL usually evicts first, but the record may linger past
	// its expiry; a lingering record is still absent.
	if secret.Gone(time.Now()) {
		return nil, ErrNotAvailable
	}

	secret.Consumed = true
	return secret, nil
}

func (r *RedisStore) Burn(ctx context.Context, id, burnToken string) error {
	return burnScript.Run(ctx, r.client, []string{secretKey(id)}, burnToken).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Helpers

func secretKey(id string) string {
	return "secret:" + id
}

func encode(secret *models.Secret) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(secret); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*models.Secret, error) {
	var secret models.Secret
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&secret); err != nil {
		return nil, err
	}
	return &secret, nil
}
