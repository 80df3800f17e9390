// Package envspec turns matrix cells into reproducible environment
// specifications.
//
// Spec generation is a pure function of the cell's 4-tuple, the static
// per-language adapter table, and the ports handed in by the allocator:
// the same inputs always marshal to byte-identical compose documents, so
// an environment can be regenerated for a re-run without drift. The spec
// is opaque to the orchestrator, which only launches it and probes the
// readiness URL.
package envspec

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crosslang/sdkbench/pkg/lang"
	"github.com/crosslang/sdkbench/pkg/matrix"
)

// Environment variable names injected into both services.
const (
	EnvServerHost     = "SDK_SERVER_HOST"
	EnvServerPort     = "SDK_SERVER_PORT"
	EnvClientPort     = "SDK_CLIENT_PORT"
	EnvTimeoutSeconds = "SDK_TIMEOUT_SECONDS"
	EnvPackageSpec    = "SDK_PACKAGE_SPEC"
)

// Ports is the host port pair assigned to one cell.
type Ports struct {
	Server int `json:"server"`
	Client int `json:"client"`
}

// Service is one side of the environment.
type Service struct {
	Image       string            `yaml:"image"`
	Command     string            `yaml:"command"`
	Environment map[string]string `yaml:"environment"`
	Ports       []string          `yaml:"ports,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
}

// Spec is the declarative description of one cell's environment.
type Spec struct {
	Cell      matrix.Cell
	Ports     Ports
	Timeout   time.Duration
	ReadyPath string
	Server    Service
	Client    Service
}

type composeFile struct {
	Services map[string]Service `yaml:"services"`
}

// Generator builds environment specs from the language adapter table.
type Generator struct {
	registry *lang.Registry
	timeout  time.Duration
}

// NewGenerator creates a generator. timeout is the per-cell wall-clock
// deadline conveyed to both services.
func NewGenerator(registry *lang.Registry, timeout time.Duration) *Generator {
	return &Generator{registry: registry, timeout: timeout}
}

// SpecFor derives the environment spec for a cell. It is deterministic:
// no clock, no randomness, no host state.
func (g *Generator) SpecFor(cell matrix.Cell, ports Ports) (*Spec, error) {
	client, err := g.registry.Get(cell.ClientLang)
	if err != nil {
		return nil, err
	}
	server, err := g.registry.Get(cell.ServerLang)
	if err != nil {
		return nil, err
	}

	timeoutSecs := strconv.Itoa(int(g.timeout / time.Second))
	spec := &Spec{
		Cell:      cell,
		Ports:     ports,
		Timeout:   g.timeout,
		ReadyPath: server.ReadyPath,
		Server: Service{
			Image:   server.Image,
			Command: server.ServerCommand,
			Environment: map[string]string{
				EnvServerHost:     "0.0.0.0",
				EnvServerPort:     strconv.Itoa(server.DefaultPort),
				EnvTimeoutSeconds: timeoutSecs,
				EnvPackageSpec:    server.PackageSpec(cell.ServerVersion),
			},
			Ports: []string{fmt.Sprintf("%d:%d", ports.Server, server.DefaultPort)},
		},
		Client: Service{
			Image:   client.Image,
			Command: client.ClientCommand,
			Environment: map[string]string{
				EnvServerHost:     "server",
				EnvServerPort:     strconv.Itoa(server.DefaultPort),
				EnvClientPort:     strconv.Itoa(client.DefaultPort),
				EnvTimeoutSeconds: timeoutSecs,
				EnvPackageSpec:    client.PackageSpec(cell.ClientVersion),
			},
			Ports:     []string{fmt.Sprintf("%d:%d", ports.Client, client.DefaultPort)},
			DependsOn: []string{"server"},
		},
	}
	return spec, nil
}

// ComposeYAML marshals the spec as a compose document. Identical specs
// marshal to identical bytes.
func (s *Spec) ComposeYAML() ([]byte, error) {
	return yaml.Marshal(composeFile{Services: map[string]Service{
		"server": s.Server,
		"client": s.Client,
	}})
}

// ReadyURL is the host-side readiness probe URL for the server service.
func (s *Spec) ReadyURL(host string) string {
	return fmt.Sprintf("http://%s:%d%s", host, s.Ports.Server, s.ReadyPath)
}
