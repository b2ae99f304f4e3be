/*
Package collector defines the plugin interface between the crawler and its
feature collector plugins.

Each [Collector] produces the features of a single feature type, such as "os",
"cpu", or "package". Collectors register themselves with the go-plugger
collector group from init functions; the sub-package “all” pulls in all
collectors supported out-of-the-box.

A collector gets passed an [Env] with the crawl mode controller for the
current target, and the shared services it might need, such as the rate cache
or the cgroup accounting. Collectors that need to look at a container from the
inside register their collection functions with [controller.Register] and run
them through the controller, so the very same collection function serves the
local host, offline images, and containers.
*/
package collector
