// Package manifest loads the msl manifest: the user-authored file that lists
// the Multipass instances msl manages and their desired attributes.
//
// A manifest looks like this:
//
//	instances:
//	  primary:
//	    cpus: 1
//	    memory: 1G
//	    disk: 10G
//	    mounts:
//	      /home/me/src: src
//
// Key order is preserved everywhere. The order of instances defines what
// "all configured instances" means, and the order of attributes is the order
// of the flags passed to `multipass launch`.
package manifest

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"golang.org/x/crypto/ssh"
)

// DefaultFile is the manifest file name looked up in the working directory.
const DefaultFile = "multipass.yaml"

const (
	// MountsKey holds an instance's host path → guest path mappings.
	MountsKey = "mounts"

	// CloudInitKey holds an instance's cloud-init block.
	CloudInitKey = "cloud_init"
)

// ErrNotFound is returned by Load when the manifest file does not exist.
var ErrNotFound = errors.New("manifest not found")

// Attribute is a scalar instance setting that becomes a `--key value` launch flag.
type Attribute struct {
	Key   string
	Value string
}

// Mount binds a host directory to a path inside the instance.
type Mount struct {
	Host  string
	Guest string
}

// CloudInit is the optional per-instance cloud-init block. It is rendered to
// a #cloud-config user-data file and passed to `multipass launch --cloud-init`.
type CloudInit struct {
	FQDN     string   `yaml:"fqdn,omitempty" toml:"fqdn"`
	SSHKeys  []string `yaml:"ssh_keys,omitempty" toml:"ssh_keys"`
	Packages []string `yaml:"packages,omitempty" toml:"packages"`
	RunCmd   []string `yaml:"runcmd,omitempty" toml:"runcmd"`
}

// Validate checks cloud-init configuration.
func (c *CloudInit) Validate() error {
	if c.FQDN != "" {
		fqdnPattern := `^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`
		matched, err := regexp.MatchString(fqdnPattern, strings.ToLower(c.FQDN))
		if err != nil {
			return fmt.Errorf("fqdn validation error: %w", err)
		}
		if !matched || net.ParseIP(c.FQDN) != nil {
			return fmt.Errorf("fqdn must be a valid hostname with domain (e.g., host.example.com), got %q", c.FQDN)
		}
	}

	for i, key := range c.SSHKeys {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
			return fmt.Errorf("ssh_keys[%d] is not a valid SSH public key: %w", i, err)
		}
	}

	return nil
}

// Instance is the desired state of one Multipass instance.
type Instance struct {
	Name       string
	Attributes []Attribute
	Mounts     []Mount
	CloudInit  *CloudInit
}

// Attribute returns the value of a scalar attribute.
func (i *Instance) Attribute(key string) (string, bool) {
	for _, attr := range i.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// MountMap returns the instance's mounts keyed by host path.
// An instance without mounts yields an empty, non-nil map.
func (i *Instance) MountMap() map[string]string {
	mounts := make(map[string]string, len(i.Mounts))
	for _, m := range i.Mounts {
		mounts[m.Host] = m.Guest
	}
	return mounts
}

// Manifest is the parsed manifest file.
type Manifest struct {
	// Path is the file the manifest was loaded from, empty for in-memory manifests.
	Path string

	order     []string
	instances map[string]*Instance
}

// New returns a manifest holding the given instances in order.
// Later duplicates of a name are rejected.
func New(instances ...*Instance) (*Manifest, error) {
	m := &Manifest{instances: make(map[string]*Instance, len(instances))}
	for _, inst := range instances {
		if err := m.add(inst); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manifest) add(inst *Instance) error {
	if inst.Name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}
	if _, exists := m.instances[inst.Name]; exists {
		return fmt.Errorf("instance %q is defined more than once", inst.Name)
	}
	m.order = append(m.order, inst.Name)
	m.instances[inst.Name] = inst
	return nil
}

// Names returns the configured instance names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// Lookup returns the configured instance with the given name.
func (m *Manifest) Lookup(name string) (*Instance, bool) {
	if m == nil {
		return nil, false
	}
	inst, ok := m.instances[name]
	return inst, ok
}

// Has reports whether name is a configured instance.
func (m *Manifest) Has(name string) bool {
	_, ok := m.Lookup(name)
	return ok
}

// Len returns the number of configured instances.
func (m *Manifest) Len() int {
	return len(m.order)
}
