/*
Package cgroupfs reads the CPU and memory accounting of containers from the
cgroup file system, and classifies the network traffic of processes using the
net_cls controller.

Whether the system uses cgroup v1 (or a hybrid hierarchy) or the unified v2
hierarchy gets decided once when calling [New], which returns the matching
[Accounting] adapter. Callers never need to detect the flavor themselves.
*/
package cgroupfs
