/*
Package files collects file system metadata ("file") and the contents of
configuration files ("config").

Both collectors walk the file system of the target breadth-first, starting at
a configurable root directory and skipping paths matching the exclusion
patterns. Paths are always reported as seen from inside the target, even when
collecting from an image mount point or from the outside of a container.
When a feature epoch is set, only files accessed or changed after the epoch
get reported.
*/
package files
