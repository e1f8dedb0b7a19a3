package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix   = "user:%d"
	GossipKeyPrefix = "gossip:%d"
)

const (
	UserTTL   = 5 * time.Minute
	GossipTTL = 30 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func GossipKey(gossipID uint) string {
	return fmt.Sprintf(GossipKeyPrefix, gossipID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateGossip(ctx context.Context, gossipID uint) {
	Invalidate(ctx, GossipKey(gossipID))
}
