/*
Package controller selects how a collector instance collects features: from
the local host, from an offline disk image, from a virtual machine using an
out-of-band channel, or from a live container as seen from the outside.

A [Controller] is configured once with its mode and the matching target, see
[New]. Collection functions are registered using [Register] and then run
through the controller using [RunUnderNamespaces], [RunAvoidingNamespaces], or
[CollectWithFallback]. Instead of inspecting some mode flag of the controller,
collection functions get passed an explicit [Scope]: the mode they have to
collect as, and the root directory to collect from.

When collecting from a container, the controller temporarily switches its
active mode to local while delegating to a child process that has joined the
container's namespaces. The configured mode is restored when the delegation
ends for whatever reason, including failures and consumers stopping early.

A Controller must not be used concurrently.
*/
package controller
