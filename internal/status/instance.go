package status

import (
	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
	"github.com/verschlimmbesserer/multipass-wrapper/internal/multipass"
)

// Instance is one row of `msl status`.
type Instance struct {
	Name       string            `yaml:"name" json:"name"`
	Configured bool              `yaml:"configured" json:"configured"`
	Phase      Phase             `yaml:"phase" json:"phase"`
	IPv4       []string          `yaml:"ipv4,omitempty" json:"ipv4,omitempty"`
	Release    string            `yaml:"release,omitempty" json:"release,omitempty"`
	CPUs       string            `yaml:"cpus,omitempty" json:"cpus,omitempty"`
	Memory     string            `yaml:"memory,omitempty" json:"memory,omitempty"`
	Disk       string            `yaml:"disk,omitempty" json:"disk,omitempty"`
	Mounts     map[string]string `yaml:"mounts,omitempty" json:"mounts,omitempty"`
}

// Build combines the desired instance (nil when not configured) with the
// live instance (nil when Multipass does not know it).
func Build(name string, desired *manifest.Instance, live *multipass.InstanceInfo) Instance {
	inst := Instance{
		Name:  name,
		Phase: PhaseAbsent,
	}

	if desired != nil {
		inst.Configured = true
		inst.CPUs, _ = desired.Attribute("cpus")
		inst.Memory, _ = desired.Attribute("memory")
		inst.Disk, _ = desired.Attribute("disk")
		if len(desired.Mounts) > 0 {
			inst.Mounts = desired.MountMap()
		}
	}

	if live != nil {
		inst.Phase = ParsePhase(live.State)
		inst.IPv4 = live.IPv4
		inst.Release = live.Release
	}

	return inst
}
