package cloudinit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/verschlimmbesserer/multipass-wrapper/internal/manifest"
)

// Test SSH keys (valid keys generated for testing)
const (
	testSSHKeyEd25519 = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIIbJKZscbOLzBsgY5y2QupKW4A2kSDjMBQGPb1dChr+S test@example.com"
	testSSHKeyRSA     = "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQCq7mGKPGMc36QAe7g1dJ8oGeDD1VnfBwdC3YAlp8zX3cQm8PEaaBUsKgVPigiFVWMwKTBpP2YWAjQaqyBIgFM7sneE8Ke3ouMS9GaOoFHMcorvX1N6oJtldL58D1vfGpHcBfwZiSFHxHZOZwG0Q0hCBJcoAiVtBUaubspLiXY/QgUZnw1JgbAsVuFdHxMsqSwi8NC6smVhg00T28TDubfgMZM02Uvd/qNZF6PzKxUhcCIY4zCHtsiMeN7njssKmjnuBLBlD51D19Rw6CbHsKOEskdpIHU+8o5debIwHk7c6Q0iOGTs/2lg/Rjzs+Us59NOTRB+jECEAbO0r19l//pr test-rsa@example.com"
)

func parseUserData(t *testing.T, content string) UserData {
	t.Helper()
	if !strings.HasPrefix(content, "#cloud-config\n") {
		t.Fatal("user-data must start with '#cloud-config'")
	}
	var userData UserData
	if err := yaml.Unmarshal([]byte(strings.TrimPrefix(content, "#cloud-config\n")), &userData); err != nil {
		t.Fatalf("Failed to parse user-data YAML: %v", err)
	}
	return userData
}

func TestGenerateUserData(t *testing.T) {
	tests := []struct {
		name         string
		inst         *manifest.Instance
		expectErr    bool
		checkContent func(t *testing.T, userData UserData)
	}{
		{
			name:      "nil instance",
			inst:      nil,
			expectErr: true,
		},
		{
			name: "no cloud_init block",
			inst: &manifest.Instance{Name: "dev"},
			checkContent: func(t *testing.T, userData UserData) {
				if userData.Hostname != "dev" {
					t.Errorf("Expected hostname 'dev', got %q", userData.Hostname)
				}
				if userData.FQDN != "dev" {
					t.Errorf("Expected fqdn 'dev', got %q", userData.FQDN)
				}
				if userData.Output == nil || userData.Output.All != "| tee -a /var/log/cloud-init-output.log" {
					t.Error("Expected output logging to be configured")
				}
			},
		},
		{
			name: "with FQDN - hostname extraction",
			inst: &manifest.Instance{
				Name:      "dev",
				CloudInit: &manifest.CloudInit{FQDN: "Web01.Prod.Example.com"},
			},
			checkContent: func(t *testing.T, userData UserData) {
				if userData.Hostname != "web01" {
					t.Errorf("Expected hostname 'web01', got %q", userData.Hostname)
				}
				if userData.FQDN != "web01.prod.example.com" {
					t.Errorf("Expected lower-cased fqdn, got %q", userData.FQDN)
				}
			},
		},
		{
			name: "with SSH keys, packages and runcmd",
			inst: &manifest.Instance{
				Name: "dev",
				CloudInit: &manifest.CloudInit{
					SSHKeys:  []string{testSSHKeyEd25519, testSSHKeyRSA},
					Packages: []string{"git"},
					RunCmd:   []string{"echo hello"},
				},
			},
			checkContent: func(t *testing.T, userData UserData) {
				if len(userData.SSHAuthorizedKeys) != 2 {
					t.Fatalf("Expected 2 SSH keys, got %d", len(userData.SSHAuthorizedKeys))
				}
				if userData.SSHAuthorizedKeys[1] != testSSHKeyRSA {
					t.Error("Second SSH key doesn't match")
				}
				if len(userData.Packages) != 1 || userData.Packages[0] != "git" {
					t.Errorf("Packages = %v", userData.Packages)
				}
				if len(userData.RunCmd) != 1 {
					t.Errorf("RunCmd = %v", userData.RunCmd)
				}
			},
		},
		{
			name: "invalid SSH key",
			inst: &manifest.Instance{
				Name:      "dev",
				CloudInit: &manifest.CloudInit{SSHKeys: []string{"ssh-rsa not-base64"}},
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := GenerateUserData(tt.inst)
			if tt.expectErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateUserData() error = %v", err)
			}
			if tt.checkContent != nil {
				tt.checkContent(t, parseUserData(t, content))
			}
		})
	}
}

func TestWriteUserData(t *testing.T) {
	dir := t.TempDir()
	inst := &manifest.Instance{
		Name:      "dev",
		CloudInit: &manifest.CloudInit{SSHKeys: []string{testSSHKeyEd25519}},
	}

	path, err := WriteUserData(dir, inst)
	if err != nil {
		t.Fatalf("WriteUserData() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("user-data written to %s, want a file under %s", path, dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read user-data: %v", err)
	}
	userData := parseUserData(t, string(data))
	if len(userData.SSHAuthorizedKeys) != 1 {
		t.Errorf("expected 1 SSH key, got %v", userData.SSHAuthorizedKeys)
	}
}

func TestWriteUserData_InvalidLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	inst := &manifest.Instance{
		Name:      "dev",
		CloudInit: &manifest.CloudInit{FQDN: "nodomain"},
	}

	if _, err := WriteUserData(dir, inst); err == nil {
		t.Fatal("expected error for invalid cloud_init")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files, got %d", len(entries))
	}
}
