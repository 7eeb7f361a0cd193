package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis serializes capacity updates per visit date. The booking path takes
// the date lock around the read-ensure/reserve sequence so two first bookings
// on a fresh date cannot both create the ledger row.
type Redis struct {
	Client  *redis.Client
	LockTTL time.Duration
}

func NewRedis(client *redis.Client, lockTTL time.Duration) *Redis {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &Redis{Client: client, LockTTL: lockTTL}
}

func dateLockKey(visitDate string) string {
	return "booking_date_lock:" + visitDate
}

// LockDate acquires the per-date lock for ownerID. Returns false when another
// booking currently holds it. The TTL bounds the hold time if the owner dies
// before releasing.
func (r *Redis) LockDate(ctx context.Context, visitDate, ownerID string) (bool, error) {
	return r.Client.SetNX(ctx, dateLockKey(visitDate), ownerID, r.LockTTL).Result()
}

// UnlockDate releases the lock only if ownerID still holds it, so an expired
// lock re-acquired by someone else is never deleted from under them.
func (r *Redis) UnlockDate(ctx context.Context, visitDate, ownerID string) error {
	key := dateLockKey(visitDate)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == ownerID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
