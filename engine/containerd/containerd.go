// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package containerd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	cdclient "github.com/containerd/containerd"
	"github.com/containerd/containerd/namespaces"
	"github.com/siemens/nscrawler/engine"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
)

// Type is the engine type identifier of containerd.
const Type = "containerd.io"

// DefaultNamespace is the containerd namespace used when none is specified.
const DefaultNamespace = "default"

// nameLabel is the label kubelet puts on containers with their pod-local
// container name.
const nameLabel = "io.kubernetes.container.name"

const versionTimeout = 5 * time.Second

// Runtime implements a read-only [engine.Runtime] for containerd.
type Runtime struct {
	client    *cdclient.Client
	namespace string
}

var _ engine.Runtime = (*Runtime)(nil)

// New returns a Runtime for the containerd API endpoint at the specified
// path, such as "/run/containerd/containerd.sock", working in the specified
// containerd namespace. The endpoint is checked by querying the daemon's
// version, as the containerd client happily accepts any path and only fails
// when actually talking to the daemon.
func New(ctx context.Context, endpoint string, namespace string) (*Runtime, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	log.Debugf("dialing containerd endpoint '%s'", endpoint)
	cl, err := cdclient.New(endpoint, cdclient.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("cannot create containerd client, reason: %w", err)
	}
	versionctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	if _, err := cl.Version(versionctx); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("containerd API endpoint '%s' failed, reason: %w", endpoint, err)
	}
	return &Runtime{client: cl, namespace: namespace}, nil
}

// Type returns "containerd.io".
func (r *Runtime) Type() string { return Type }

// Namespace returns the containerd namespace this runtime works in.
func (r *Runtime) Namespace() string { return r.namespace }

// Close the containerd client.
func (r *Runtime) Close() error { return r.client.Close() }

// Containers returns the containers in this runtime's containerd namespace.
func (r *Runtime) Containers(ctx context.Context) ([]engine.Info, error) {
	ctx = namespaces.WithNamespace(ctx, r.namespace)
	cntrs, err := r.client.Containers(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot list containerd containers, reason: %w", err)
	}
	infos := make([]engine.Info, 0, len(cntrs))
	for _, cntr := range cntrs {
		info, err := r.info(ctx, cntr)
		if err != nil {
			log.Debugf("skipping containerd container %s, reason: %s", cntr.ID(), err.Error())
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Inspect returns the details of the specified container.
func (r *Runtime) Inspect(ctx context.Context, id string) (engine.Info, error) {
	ctx = namespaces.WithNamespace(ctx, r.namespace)
	cntr, err := r.client.LoadContainer(ctx, id)
	if err != nil {
		return engine.Info{}, fmt.Errorf("cannot load containerd container %s, reason: %w", id, err)
	}
	return r.info(ctx, cntr)
}

// RootfsPath returns the root wormhole of the container's initial process.
func (r *Runtime) RootfsPath(ctx context.Context, id string) (string, error) {
	info, err := r.Inspect(ctx, id)
	if err != nil {
		return "", err
	}
	if info.PID == 0 {
		return "", fmt.Errorf("containerd container %s has no root file system path", id)
	}
	return "/proc/" + strconv.FormatUint(uint64(info.PID), 10) + "/root", nil
}

// Create is not supported.
func (r *Runtime) Create(context.Context, engine.CompanionSpec) (engine.Info, error) {
	return engine.Info{}, fmt.Errorf("containerd companion: %w", engine.ErrNotSupported)
}

// Remove is not supported.
func (r *Runtime) Remove(context.Context, string) error {
	return fmt.Errorf("containerd container removal: %w", engine.ErrNotSupported)
}

// info returns the engine-neutral information about a containerd container;
// containers without a task are reported in state "created".
func (r *Runtime) info(ctx context.Context, cntr cdclient.Container) (engine.Info, error) {
	details, err := cntr.Info(ctx)
	if err != nil {
		return engine.Info{}, err
	}
	info := engine.Info{
		ID:      details.ID,
		Name:    details.ID,
		Image:   details.Image,
		Labels:  details.Labels,
		State:   string(cdclient.Created),
		Created: details.CreatedAt,
		Details: details,
	}
	if spec, err := cntr.Spec(ctx); err == nil && spec.Process != nil {
		info.Command = spec.Process.Args
	}
	if name := details.Labels[nameLabel]; name != "" {
		info.Name = name
	}
	task, err := cntr.Task(ctx, nil)
	if err != nil {
		return info, nil
	}
	status, err := task.Status(ctx)
	if err != nil {
		return info, nil
	}
	info.State = string(status.Status)
	if status.Status != cdclient.Stopped {
		info.PID = model.PIDType(task.Pid())
	}
	return info, nil
}
