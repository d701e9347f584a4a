// Package cloudinit renders cloud-init user-data for instances that declare a
// cloud_init block in the manifest.
//
// Multipass accepts user-data as a plain file (`multipass launch --cloud-init
// <file>`), so only the #cloud-config document is generated here.
//
// See https://cloudinit.readthedocs.io/en/latest/explanation/format.html#cloud-config-data
package cloudinit

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
)

// header must be the first line of a cloud-config document.
const header = "#cloud-config\n"

// UserData represents the cloud-config user-data structure.
type UserData struct {
	Hostname          string   `yaml:"hostname"`
	FQDN              string   `yaml:"fqdn"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys,omitempty"`
	Packages          []string `yaml:"packages,omitempty"`
	RunCmd            []string `yaml:"runcmd,omitempty"`
	Output            *Output  `yaml:"output,omitempty"`
}

// Output configures cloud-init output logging.
type Output struct {
	All string `yaml:"all"`
}

// GenerateUserData generates the user-data content for an instance.
//
// Returns the complete file content including the "#cloud-config" header.
// The instance's cloud_init block is validated first.
func GenerateUserData(inst *manifest.Instance) (string, error) {
	if inst == nil {
		return "", fmt.Errorf("instance cannot be nil")
	}

	hostname := inst.Name
	fqdn := inst.Name
	userData := UserData{
		Output: &Output{
			All: "| tee -a /var/log/cloud-init-output.log",
		},
	}

	if ci := inst.CloudInit; ci != nil {
		if err := ci.Validate(); err != nil {
			return "", fmt.Errorf("invalid cloud_init for %s: %w", inst.Name, err)
		}
		if ci.FQDN != "" {
			fqdn = strings.ToLower(ci.FQDN)
			hostname = strings.SplitN(fqdn, ".", 2)[0]
		}
		userData.SSHAuthorizedKeys = ci.SSHKeys
		userData.Packages = ci.Packages
		userData.RunCmd = ci.RunCmd
	}
	userData.Hostname = hostname
	userData.FQDN = fqdn

	yamlBytes, err := yaml.Marshal(&userData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data to YAML: %w", err)
	}

	return header + string(yamlBytes), nil
}

// WriteUserData renders the instance's user-data into a new file under dir
// (os.TempDir when empty) and returns its path. The caller removes the file.
func WriteUserData(dir string, inst *manifest.Instance) (string, error) {
	content, err := GenerateUserData(inst)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, fmt.Sprintf("msl-%s-*.yaml", inst.Name))
	if err != nil {
		return "", fmt.Errorf("failed to create user-data file: %w", err)
	}
	path := f.Name()

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write user-data file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write user-data file %s: %w", path, err)
	}

	return path, nil
}
