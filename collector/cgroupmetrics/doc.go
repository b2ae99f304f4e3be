/*
Package cgroupmetrics collects CPU ("cpu") and memory ("memory") utilization.

On the local host, utilization comes from the kernel's system-wide
accounting in /proc. For containers, utilization comes from the cgroup
accounting of the container's initial process, with the CPU attributes that
cgroups don't account for (nice, wait, interrupt, steal) approximated by the
host's values.

CPU utilization is a rate: the previous counter snapshots are kept in the
rate cache of the collection environment. If there is no previous snapshot
of a container, the CPU collector takes two snapshots 100ms apart.
*/
package cgroupmetrics
