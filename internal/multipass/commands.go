package multipass

import (
	"fmt"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
)

// LaunchArgs builds `launch` arguments for an instance.
//
// Every scalar attribute becomes `--<key> <value>` in manifest order. Only the
// instance's own mounts are added. cloudInitFile is passed as --cloud-init
// when non-empty.
func LaunchArgs(inst *manifest.Instance, cloudInitFile string) []string {
	args := []string{"launch", "--name", inst.Name}
	for _, attr := range inst.Attributes {
		args = append(args, "--"+attr.Key, attr.Value)
	}
	for _, m := range inst.Mounts {
		args = append(args, "--mount", MountSpec(m.Host, m.Guest))
	}
	if cloudInitFile != "" {
		args = append(args, "--cloud-init", cloudInitFile)
	}
	return args
}

// StopArgs builds `stop` arguments. With all set, names are ignored.
func StopArgs(names []string, all bool) []string {
	return bulkArgs("stop", names, all)
}

// DeleteArgs builds `delete` arguments. With all set, names are ignored.
func DeleteArgs(names []string, all bool) []string {
	return bulkArgs("delete", names, all)
}

func bulkArgs(verb string, names []string, all bool) []string {
	if all {
		return []string{verb, "--all"}
	}
	return append([]string{verb}, names...)
}

// MountArgs builds `mount <host> <instance>:<guest>`.
func MountArgs(host, instance, guest string) []string {
	return []string{"mount", host, Target(instance, guest)}
}

// UmountArgs builds `umount <instance>:<guest>`.
func UmountArgs(instance, guest string) []string {
	return []string{"umount", Target(instance, guest)}
}

// MountSpec formats a launch-time mount: <host>:<guest>.
func MountSpec(host, guest string) string {
	return fmt.Sprintf("%s:%s", host, guest)
}

// Target formats a path inside an instance: <instance>:<guest>.
func Target(instance, guest string) string {
	return fmt.Sprintf("%s:%s", instance, guest)
}
