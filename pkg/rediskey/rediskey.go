package rediskey

import "fmt"

// Reward keys (global convention across services)
const (
	RewardLockPrefix  = "reward:lock"
	RewardStatsPrefix = "reward:stats"
	SequencePrefix    = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildRewardLockKey returns "reward:lock:{companyID}"
func BuildRewardLockKey(companyID string) string {
	return NamespaceKey(RewardLockPrefix, companyID)
}

// BuildSequenceKey returns "seq:{prefix}:{scope}:{day}"
func BuildSequenceKey(prefix, scope, day string) string {
	return fmt.Sprintf("%s:%s:%s:%s", SequencePrefix, prefix, scope, day)
}
