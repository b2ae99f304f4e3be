/*
Package containerd implements a read-only [engine.Runtime] for containers
managed by containerd in a single containerd namespace.

containerd guests can be crawled from the outside, but companion containers
for plugin collection are only supported on Docker; [Runtime.Create] thus
returns [engine.ErrNotSupported].
*/
package containerd
