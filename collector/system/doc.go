/*
Package system collects the identity of the operating system ("os"), the
system load ("load"), the processes ("process") and their resource usage
("metric"), as well as the mounted file systems ("disk") of a target.

OS identity works for all crawl modes: offline images lack boot time, uptime,
and live addresses, and are reported as [feature.Unsupported]; VMs get
introspected out-of-band. The other collectors need a live target.

The CPU usage of processes is derived from the CPU times of consecutive
collections, so the first collection of a process reports zero.
*/
package system
