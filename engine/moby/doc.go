/*
Package moby binds the Docker engine as an [engine.Runtime], including the
creation and removal of sandbox companion containers.

The API endpoint can either be specified explicitly or discovered by looking
for a "dockerd" process and its listening unix domain sockets, see
[DiscoverEndpoints].
*/
package moby
