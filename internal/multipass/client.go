// Package multipass talks to the Multipass CLI.
//
// Live state is read by running `multipass list` and `multipass info` with
// YAML output. State-changing commands are not run here: this package only
// builds their argument lists, and internal/batch runs them.
package multipass

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/batch"
)

// DefaultBinary is the Multipass executable looked up in PATH.
const DefaultBinary = "multipass"

// Client queries Multipass for live state.
type Client struct {
	binary string
	runner batch.Runner
}

// NewClient creates a client that runs binary through runner.
// An empty binary defaults to DefaultBinary.
func NewClient(binary string, runner batch.Runner) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{binary: binary, runner: runner}
}

// Binary returns the Multipass executable the client runs.
func (c *Client) Binary() string {
	return c.binary
}

// InstanceInfo is one instance as reported by `multipass list`.
type InstanceInfo struct {
	Name    string
	State   string
	IPv4    []string
	Release string
}

type listEntry struct {
	State   string   `yaml:"state"`
	IPv4    []string `yaml:"ipv4"`
	Release string   `yaml:"release"`
}

type infoEntry struct {
	State  string               `yaml:"state"`
	Mounts map[string]infoMount `yaml:"mounts"`
}

type infoMount struct {
	SourcePath string `yaml:"source_path"`
}

// ListInstances returns the names of all instances Multipass knows about,
// in the order Multipass reports them.
func (c *Client) ListInstances(ctx context.Context) ([]string, error) {
	infos, err := c.Instances(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names, nil
}

// Instances returns every instance reported by `multipass list --format yaml`.
func (c *Client) Instances(ctx context.Context) ([]InstanceInfo, error) {
	out, err := c.query(ctx, "list", "--format", "yaml")
	if err != nil {
		return nil, err
	}
	return parseList(out)
}

// parseList decodes `multipass list --format yaml` output: a mapping of
// instance name to a one-element list of instance details.
func parseList(data []byte) ([]InstanceInfo, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse multipass list output: %w", err)
	}
	// Empty output means no instances
	if root.Kind == 0 || len(root.Content) == 0 {
		return []InstanceInfo{}, nil
	}

	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return []InstanceInfo{}, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse multipass list output: expected a mapping of instances")
	}

	infos := make([]InstanceInfo, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		info := InstanceInfo{Name: doc.Content[i].Value}

		var entries []listEntry
		if err := doc.Content[i+1].Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to parse multipass list entry %s: %w", info.Name, err)
		}
		if len(entries) > 0 {
			info.State = entries[0].State
			info.IPv4 = entries[0].IPv4
			info.Release = entries[0].Release
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// Mounts returns the live mounts of instance name as host source path →
// guest path. Multipass reports them the other way round; the map is
// inverted so callers can look mounts up by host path.
//
// An instance that is unknown or has no mounts yields an empty map.
func (c *Client) Mounts(ctx context.Context, name string) (map[string]string, error) {
	out, err := c.query(ctx, "info", "--format", "yaml", "--all")
	if err != nil {
		return nil, err
	}
	return parseMounts(out, name)
}

func parseMounts(data []byte, name string) (map[string]string, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse multipass info output: %w", err)
	}

	mounts := make(map[string]string)
	node, ok := doc[name]
	if !ok {
		return mounts, nil
	}

	var entries []infoEntry
	if err := node.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse multipass info for %s: %w", name, err)
	}
	if len(entries) == 0 {
		return mounts, nil
	}

	for guest, m := range entries[0].Mounts {
		mounts[m.SourcePath] = guest
	}
	return mounts, nil
}

// query runs a read-only Multipass command and returns its stdout.
// Any failure is returned as an error carrying Multipass' stderr.
func (c *Client) query(ctx context.Context, args ...string) ([]byte, error) {
	stdout, stderr, exitCode, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil || exitCode != 0 {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" && err != nil {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s failed (exit status %d): %s", c.binary, strings.Join(args, " "), exitCode, msg)
	}
	return stdout, nil
}
