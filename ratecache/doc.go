/*
Package ratecache remembers the most recent counter snapshots per key, so that
cumulative counters such as transmitted bytes or consumed CPU nanoseconds can
be turned into rates.

A [Cache] is explicitly created by the composition root and then passed to
whoever needs it; there is no package-level cache. The cache never evicts on
its own; owners that need to bound its size call [Cache.Evict] with their own
policy.
*/
package ratecache
