// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package moby

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/siemens/nscrawler/engine"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
)

// Type is the engine type identifier of Docker.
const Type = "docker.com"

const (
	runningPolling = 100 * time.Millisecond
	runningTimeout = 30 * time.Second
)

// Runtime implements [engine.Runtime] for the Docker engine.
type Runtime struct {
	client *client.Client
}

var (
	_ engine.Runtime   = (*Runtime)(nil)
	_ engine.Historian = (*Runtime)(nil)
)

// New returns a Runtime talking to the Docker engine at the specified API
// endpoint, such as "unix:///run/docker.sock". An empty endpoint uses the
// usual DOCKER_HOST et al. environment variables.
func New(endpoint string) (*Runtime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if endpoint != "" {
		opts = append(opts, client.WithHost(endpoint))
	}
	cl, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create Docker client, reason: %w", err)
	}
	return &Runtime{client: cl}, nil
}

// Type returns "docker.com".
func (r *Runtime) Type() string { return Type }

// Client returns the underlying Docker client.
func (r *Runtime) Client() *client.Client { return r.client }

// Close the Docker client.
func (r *Runtime) Close() error { return r.client.Close() }

// Containers returns all containers, including stopped ones.
func (r *Runtime) Containers(ctx context.Context) ([]engine.Info, error) {
	list, err := r.client.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("cannot list Docker containers, reason: %w", err)
	}
	infos := make([]engine.Info, 0, len(list))
	for _, cntr := range list {
		info, err := r.Inspect(ctx, cntr.ID)
		if err != nil {
			// The container might have gone in the meantime.
			log.Debugf("skipping Docker container %s, reason: %s", cntr.ID, err.Error())
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Inspect returns the details of the specified container, with the full
// inspection document in Details.
func (r *Runtime) Inspect(ctx context.Context, id string) (engine.Info, error) {
	details, err := r.client.ContainerInspect(ctx, id)
	if err != nil {
		return engine.Info{}, fmt.Errorf("cannot inspect Docker container %s, reason: %w", id, err)
	}
	return infoOf(details), nil
}

// RootfsPath returns the merged directory of the container's graph driver or,
// where there is none, the root wormhole of the container's initial process.
func (r *Runtime) RootfsPath(ctx context.Context, id string) (string, error) {
	details, err := r.client.ContainerInspect(ctx, id)
	if err != nil {
		return "", fmt.Errorf("cannot inspect Docker container %s, reason: %w", id, err)
	}
	if details.ContainerJSONBase == nil {
		return "", fmt.Errorf("incomplete inspection data for Docker container %s", id)
	}
	if merged := details.GraphDriver.Data["MergedDir"]; merged != "" {
		return merged, nil
	}
	if details.State == nil || details.State.Pid == 0 {
		return "", fmt.Errorf("Docker container %s has no root file system path", id)
	}
	return "/proc/" + strconv.Itoa(details.State.Pid) + "/root", nil
}

// History returns the ID and build history of the image of the specified
// container.
func (r *Runtime) History(ctx context.Context, id string) (string, []engine.Layer, error) {
	details, err := r.client.ContainerInspect(ctx, id)
	if err != nil {
		return "", nil, fmt.Errorf("cannot inspect Docker container %s, reason: %w", id, err)
	}
	if details.ContainerJSONBase == nil || details.Image == "" {
		return "", nil, fmt.Errorf("no image information for Docker container %s", id)
	}
	items, err := r.client.ImageHistory(ctx, details.Image)
	if err != nil {
		return "", nil, fmt.Errorf("cannot read history of Docker image %s, reason: %w", details.Image, err)
	}
	layers := make([]engine.Layer, 0, len(items))
	for _, item := range items {
		layers = append(layers, engine.Layer{
			ID:        item.ID,
			Created:   time.Unix(item.Created, 0),
			CreatedBy: item.CreatedBy,
			Tags:      item.Tags,
			Size:      item.Size,
			Comment:   item.Comment,
		})
	}
	return details.Image, layers, nil
}

// Create creates and starts a companion container, waiting for it to become
// running.
func (r *Runtime) Create(ctx context.Context, spec engine.CompanionSpec) (engine.Info, error) {
	binds := make([]string, 0, len(spec.Binds))
	for _, bind := range spec.Binds {
		b := bind.Source + ":" + bind.Target
		if bind.ReadOnly {
			b += ":ro"
		}
		binds = append(binds, b)
	}
	hostconfig := &container.HostConfig{
		PidMode:     container.PidMode("container:" + spec.GuestID),
		NetworkMode: container.NetworkMode("container:" + spec.GuestID),
		Binds:       binds,
		CapDrop:     []string{"ALL"},
		CapAdd:      spec.CapAdd,
	}
	if spec.Seccomp != "" {
		hostconfig.SecurityOpt = []string{"seccomp=" + spec.Seccomp, "no-new-privileges"}
	}
	resp, err := r.client.ContainerCreate(ctx,
		&container.Config{
			Image:  spec.Image,
			Cmd:    spec.Command,
			User:   spec.User,
			Labels: spec.Labels,
		},
		hostconfig,
		nil, nil, spec.Name)
	if err != nil {
		return engine.Info{}, fmt.Errorf("cannot create Docker container %s, reason: %w", spec.Name, err)
	}
	for _, warning := range resp.Warnings {
		log.Warnf("creating Docker container %s: %s", spec.Name, warning)
	}
	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = r.Remove(context.WithoutCancel(ctx), resp.ID)
		return engine.Info{}, fmt.Errorf("cannot start Docker container %s, reason: %w", spec.Name, err)
	}
	info, err := r.waitRunning(ctx, resp.ID)
	if err != nil {
		_ = r.Remove(context.WithoutCancel(ctx), resp.ID)
		return engine.Info{}, err
	}
	return info, nil
}

// waitRunning polls the state of the specified container until it is running,
// or the time box ends.
func (r *Runtime) waitRunning(ctx context.Context, id string) (engine.Info, error) {
	ctx, cancel := context.WithTimeout(ctx, runningTimeout)
	defer cancel()
	for {
		info, err := r.Inspect(ctx, id)
		if err != nil {
			return engine.Info{}, err
		}
		if info.Running() {
			return info, nil
		}
		if info.State == "exited" || info.State == "dead" {
			return engine.Info{}, fmt.Errorf("Docker container %s terminated immediately", id)
		}
		sleep := time.NewTimer(runningPolling)
		select {
		case <-sleep.C:
		case <-ctx.Done():
			if !sleep.Stop() {
				<-sleep.C
			}
			return engine.Info{}, fmt.Errorf("Docker container %s not running, reason: %w", id, ctx.Err())
		}
	}
}

// Remove forcefully removes the specified container, including its anonymous
// volumes.
func (r *Runtime) Remove(ctx context.Context, id string) error {
	err := r.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("cannot remove Docker container %s, reason: %w", id, err)
	}
	return nil
}

// infoOf converts a Docker inspection document.
func infoOf(details container.InspectResponse) engine.Info {
	info := engine.Info{Details: details}
	if base := details.ContainerJSONBase; base != nil {
		info.ID = base.ID
		info.Name = strings.TrimPrefix(base.Name, "/")
		info.Image = base.Image
		if base.Path != "" {
			info.Command = append([]string{base.Path}, base.Args...)
		}
		if created, err := time.Parse(time.RFC3339Nano, base.Created); err == nil {
			info.Created = created
		}
		if base.State != nil {
			info.State = string(base.State.Status)
			info.PID = model.PIDType(base.State.Pid)
		}
	}
	if details.Config != nil {
		info.Labels = details.Config.Labels
		if details.Config.Image != "" {
			info.Image = details.Config.Image
		}
	}
	return info
}
