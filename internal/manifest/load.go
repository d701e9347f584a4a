package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load loads the manifest at path.
//
// Files ending in .toml are decoded as TOML, everything else as YAML.
// A missing file yields an error wrapping ErrNotFound.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (run 'msl init' to create one)", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m *Manifest
	if isTOML(path) {
		m, err = LoadFromTOML(data)
	} else {
		m, err = LoadFromYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	m.Path = path
	return m, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadFromYAML parses a manifest from YAML bytes.
func LoadFromYAML(data []byte) (*Manifest, error) {
	var doc struct {
		Instances yaml.Node `yaml:"instances"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	root := resolve(&doc.Instances)
	if root.Kind == 0 {
		return nil, fmt.Errorf("missing required field: instances")
	}

	m, _ := New()
	if isNull(root) {
		return m, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("instances must be a mapping of instance name to attributes")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		inst, err := decodeYAMLInstance(name, resolve(root.Content[i+1]))
		if err != nil {
			return nil, err
		}
		if err := m.add(inst); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func decodeYAMLInstance(name string, node *yaml.Node) (*Instance, error) {
	inst := &Instance{Name: name}
	if isNull(node) {
		return inst, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("instances.%s must be a mapping", name)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := resolve(node.Content[i+1])

		switch key {
		case MountsKey:
			mounts, err := decodeYAMLMounts(name, value)
			if err != nil {
				return nil, err
			}
			inst.Mounts = mounts
		case CloudInitKey:
			if isNull(value) {
				continue
			}
			var ci CloudInit
			if err := value.Decode(&ci); err != nil {
				return nil, fmt.Errorf("instances.%s.%s: %w", name, key, err)
			}
			inst.CloudInit = &ci
		default:
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("instances.%s.%s must be a scalar value", name, key)
			}
			inst.Attributes = append(inst.Attributes, Attribute{Key: key, Value: value.Value})
		}
	}

	return inst, nil
}

func decodeYAMLMounts(name string, node *yaml.Node) ([]Mount, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("instances.%s.mounts must be a mapping of host path to guest path", name)
	}

	mounts := make([]Mount, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		host := node.Content[i].Value
		guest := resolve(node.Content[i+1])
		if guest.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("instances.%s.mounts[%q] must be a guest path", name, host)
		}
		mounts = append(mounts, Mount{Host: host, Guest: guest.Value})
	}
	return mounts, nil
}

// resolve follows YAML aliases to the node they point at.
func resolve(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

// LoadFromTOML parses a manifest from TOML bytes. Instances are tables
// under [instances]; mounts are a [instances.<name>.mounts] table.
func LoadFromTOML(data []byte) (*Manifest, error) {
	var doc struct {
		Instances map[string]map[string]toml.Primitive `toml:"instances"`
	}
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal TOML: %w", err)
	}
	if !md.IsDefined("instances") {
		return nil, fmt.Errorf("missing required field: instances")
	}

	// MetaData.Keys is in document order; the decoded maps are not. An
	// instance may first appear through a subtable ([instances.web.mounts])
	// or a dotted key (web.cpus = 2 under [instances]), so every key below
	// an instance counts.
	var names []string
	attrOrder := make(map[string][]string)
	mountOrder := make(map[string][]string)
	for _, key := range md.Keys() {
		if len(key) < 2 || key[0] != "instances" {
			continue
		}
		name := key[1]
		names = appendUnique(names, name)
		if len(key) >= 3 {
			attrOrder[name] = appendUnique(attrOrder[name], key[2])
		}
		if len(key) >= 4 && key[2] == MountsKey {
			mountOrder[name] = appendUnique(mountOrder[name], key[3])
		}
	}

	m, _ := New()
	for _, name := range names {
		inst := &Instance{Name: name}
		fields := doc.Instances[name]

		for _, key := range attrOrder[name] {
			prim := fields[key]
			switch key {
			case MountsKey:
				var mounts map[string]string
				if err := md.PrimitiveDecode(prim, &mounts); err != nil {
					return nil, fmt.Errorf("instances.%s.mounts must be a table of host path to guest path: %w", name, err)
				}
				for _, host := range mountOrder[name] {
					inst.Mounts = append(inst.Mounts, Mount{Host: host, Guest: mounts[host]})
				}
			case CloudInitKey:
				var ci CloudInit
				if err := md.PrimitiveDecode(prim, &ci); err != nil {
					return nil, fmt.Errorf("instances.%s.%s: %w", name, key, err)
				}
				inst.CloudInit = &ci
			default:
				var raw interface{}
				if err := md.PrimitiveDecode(prim, &raw); err != nil {
					return nil, fmt.Errorf("instances.%s.%s: %w", name, key, err)
				}
				value, err := tomlScalar(raw)
				if err != nil {
					return nil, fmt.Errorf("instances.%s.%s: %w", name, key, err)
				}
				inst.Attributes = append(inst.Attributes, Attribute{Key: key, Value: value})
			}
		}

		if err := m.add(inst); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// appendUnique appends s unless list holds it already.
func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func tomlScalar(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("must be a scalar value, got %T", v)
	}
}
