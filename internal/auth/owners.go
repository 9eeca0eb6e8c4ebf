package auth

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const ownersKey = "bizdesk:owners"

// OwnerSet remembers every owner that signed in so background sweeps know
// whose records to visit.
type OwnerSet struct {
	client *redis.Client
}

// NewOwnerSet constructs an OwnerSet. A nil client disables tracking.
func NewOwnerSet(client *redis.Client) *OwnerSet {
	return &OwnerSet{client: client}
}

// Add records owner.
func (o *OwnerSet) Add(ctx context.Context, owner string) error {
	if o == nil || o.client == nil || owner == "" {
		return nil
	}
	return o.client.SAdd(ctx, ownersKey, owner).Err()
}

// Members lists the known owners.
func (o *OwnerSet) Members(ctx context.Context) ([]string, error) {
	if o == nil || o.client == nil {
		return nil, nil
	}
	return o.client.SMembers(ctx, ownersKey).Result()
}
