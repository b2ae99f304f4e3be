/*
Package nscrawler collects "frames" of features from the local host, offline
disk images, VMs, and containers. A frame is the result of a single collection
pass over a single target: metadata describing the target, followed by the
features found, such as the operating system, installed packages, files,
processes, and resource usage metrics.

# Quick Start

	import _ "github.com/siemens/nscrawler/collector/all"

	crawler, err := nscrawler.New(nscrawler.WithFeatures("os", "cpu", "package"))
	frame, err := crawler.CrawlHost(ctx)

Containers are crawled from the outside: collection functions that need to
see the world as a container sees it run in a short-lived re-executed child
process that has joined the container's namespaces, see the [nsexec] and
[controller] packages. Callers thus must call nsexec.CheckAction first thing
in their main function.

# Feature Types

Each feature type is produced by a [collector.Collector] registered with the
collector plugin group. The built-in collectors get registered by importing
[github.com/siemens/nscrawler/collector/all]. A collector failing in the middle
of a pass contributes no features to the frame; unless [WithStrictPlugins] has
been set, the crawler then carries on with the next collector.

# Sandboxed Plugins

When given a [Sandbox] using [WithSandbox], container frames additionally carry
the features that untrusted plugins computed inside isolated companion
containers, see the [sandbox] package. The crawler tears down the companions of
containers that have gone whenever [Crawler.CrawlContainers] runs.

[nsexec]: https://pkg.go.dev/github.com/siemens/nscrawler/nsexec
[controller]: https://pkg.go.dev/github.com/siemens/nscrawler/controller
[sandbox]: https://pkg.go.dev/github.com/siemens/nscrawler/sandbox
*/
package nscrawler
