/*
Package sandbox runs less-trusted collection plugins of a guest container in
an isolated companion container and harvests their results.

A [Manager] lazily provisions one companion per guest on the first call to
[Manager.Features] for that guest, or again when a previous companion went
away. A companion shares the process and network namespaces of its guest but
has its own mount namespace; the guest's root file system is bind-mounted
read-only at /rootfs_local and a host-side result directory read-write at
/frames. Plugin code runs as an unprivileged user.

Before any results are harvested, the companion gets isolated:

  - a seccomp profile denying process tracing syscalls (unless ptrace is
    explicitly allowed),
  - a net_cls class ID, unique per companion, for its tasks (on cgroup v1
    hierarchies only),
  - a packet filter rule, installed from inside the companion's network
    namespace, dropping all outbound traffic owned by the companion's user.

Plugins write one result frame file per collection pass into the result
directory, named by a sequence number. Each line of a frame file is a feature
in the form

	<type> <key> <value-literal>

where the value literal is a mapping, sequence, or scalar in flow notation,
such as {"idle": 97.5}. [Manager.Features] consumes only the earliest frame
file per call and deletes it after it has been parsed successfully.

Failures to provision, isolate, or harvest never surface from
[Manager.Features]: they are logged and result in no features for the guest
concerned, so that the remaining guests still get crawled.
*/
package sandbox
