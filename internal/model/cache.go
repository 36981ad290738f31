package model

import (
	"encoding/json"
	"time"
)

// Cache category constants. Every cached value belongs to exactly one
// category, and the category decides its TTL in each tier.
const (
	CategoryUserProfile     = "USER_PROFILE"
	CategoryUserPreferences = "USER_PREFERENCES"
	CategoryUserBasic       = "USER_BASIC"
	CategoryUserStats       = "USER_STATS"
	CategoryBatchUsers      = "BATCH_USERS"
	CategorySessionData     = "SESSION_DATA"
	CategoryUserPermissions = "USER_PERMISSIONS"
)

// CachePolicy is the TTL pair applied to one cache category: tier 2 (Redis)
// and tier 1 (in-process).
type CachePolicy struct {
	RedisTTL  time.Duration
	MemoryTTL time.Duration
}

// MarshalJSON reports the TTLs in whole seconds, the shape the admin API
// exposes.
func (p CachePolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int64{
		"redisTtlSeconds":  int64(p.RedisTTL / time.Second),
		"memoryTtlSeconds": int64(p.MemoryTTL / time.Second),
	})
}

// CacheStats reports tier-1 occupancy plus the active TTL policy table.
type CacheStats struct {
	Size        int                    `json:"size"`
	MaxSize     int                    `json:"maxSize"`
	Utilization float64                `json:"utilization"`
	Categories  map[string]CachePolicy `json:"categories"`
}
