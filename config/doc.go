/*
Package config loads the YAML configuration of the nscrawler command. A missing
configuration file isn't an error; the defaults then apply. Command line flags
override the loaded settings afterwards.

An example configuration:

	features: [os, cpu, memory, package]
	workers: 4
	frequency: 60s
	log-level: info
	feature-epoch: "2026-01-01T00:00:00Z"
	engines:
	  docker: unix:///run/docker.sock
	  containerd: /run/containerd/containerd.sock
	collectors:
	  exclude: [/proc, /sys, /dev, /tmp, /mnt]
	  discover-configs: true
	sandbox:
	  enabled: true
	  image: nscrawler-plugins:latest
	  user: "65534:65534"
	  host-uid: 65534
*/
package config
