// Package cache implements a single-process, in-memory key–value cache used
// to hand data from one component to another without persisting it.
//
// Entries live in one of two tiers:
//   - Permanent: never expires; removed only by a consuming read or Clear
//   - Expiring: carries a TTL; removed lazily on read or by the sweeper
//
// Each tier is a map guarded by its own mutex, so traffic on one tier never
// waits on the other. The sweeper is a single goroutine owned by the Cache
// and controlled with Start and Stop.
package cache
