package node

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"

	"Vnet/api"
	"Vnet/pkg/logging"
	"Vnet/pkg/runner"
	"Vnet/pkg/util"
)

// DefaultImage is used for nodes whose spec names no image.
const DefaultImage = "frr:v4"

// DockerManager creates container-backed nodes. Each container starts with
// networking disabled; links are wired in afterwards through its network
// namespace.
//
// seq assigns address suffixes to nodes without a usable address and never
// decreases.
type DockerManager struct {
	dClient *client.Client
	seq     int
}

// NewDockerManager connects to the local container daemon.
func NewDockerManager() (*DockerManager, error) {
	dClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "creating docker client")
	}
	return &DockerManager{dClient: dClient, seq: 1}, nil
}

// AddNode creates and starts a container for spec and returns a node whose
// commands run inside the container's network namespace. The returned
// node's context id is the container's init pid.
func (dm *DockerManager) AddNode(ctx context.Context, spec *api.NodeSpec) (*Node, error) {
	uid := dm.seq
	dm.seq++

	if spec.Image == "" {
		spec.Image = DefaultImage
	}
	if !util.ValidIPv4(spec.Ipv4) {
		spec.Ipv4 = fmt.Sprintf("192.168.10.%d/24", uid)
		logging.Infof("node %s has an empty or invalid ipv4 address, reset to %s",
			spec.Name, spec.Ipv4)
	}

	sysctls := map[string]string{
		"net.ipv4.ip_forward":          "1",
		"net.ipv6.conf.all.forwarding": "1",
	}
	_, err := dm.dClient.ContainerCreate(ctx, &container.Config{
		Image:           spec.Image,
		NetworkDisabled: true,
		User:            "root",
	}, &container.HostConfig{
		Privileged: true,
		Sysctls:    sysctls,
	}, nil, nil, spec.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "creating container %s", spec.Name)
	}

	if err := dm.dClient.ContainerStart(ctx, spec.Name, container.StartOptions{}); err != nil {
		return nil, errors.Wrapf(err, "starting container %s", spec.Name)
	}

	res, err := dm.dClient.ContainerInspect(ctx, spec.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "inspecting container %s", spec.Name)
	}
	pid := res.State.Pid
	nsPath := fmt.Sprintf("/proc/%d/ns/net", pid)
	logging.Debugf("node %s netns %s", spec.Name, nsPath)

	return New(spec.Name, runner.NewNamespace(nsPath), fmt.Sprintf("%d", pid)), nil
}

// RemoveNode force-removes a node's container.
func (dm *DockerManager) RemoveNode(ctx context.Context, name string) error {
	if err := dm.dClient.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		return errors.Wrapf(err, "removing container %s", name)
	}
	return nil
}
