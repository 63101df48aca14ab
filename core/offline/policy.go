package offline

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/academia/core"
)

//go:embed policies.yaml
var defaultPolicies []byte

// Strategy tells how a local change is reconciled with a newer server copy.
type Strategy string

const (
	ServerWins Strategy = "server-wins" // drop the local change
	ClientWins Strategy = "client-wins" // push the local change as is
	Merge      Strategy = "merge"       // push the fields changed locally only
	Manual     Strategy = "manual"      // park the change until a user resolves it
)

var Strategies = []Strategy{ServerWins, ClientWins, Merge, Manual}

func (s Strategy) Valid() bool {
	for _, st := range Strategies {
		if s == st {
			return true
		}
	}
	return false
}

type Policy struct {
	Endpoint  string   `yaml:"endpoint" json:"endpoint"` // /api/students/:id
	Methods   []string `yaml:"methods" json:"methods,omitempty"`
	Strategy  Strategy `yaml:"strategy" json:"strategy"`
	Cacheable bool     `yaml:"cacheable" json:"cacheable"`
	Queue     bool     `yaml:"queue" json:"queue"`
	Pull      bool     `yaml:"pull" json:"pull"`

	segments []string
}

func (p Policy) allows(method string) bool {
	return len(p.Methods) == 0 || core.StringInSlice(strings.ToUpper(method), p.Methods)
}

// match returns the number of literal segments matched, -1 when path does not match.
func (p Policy) match(segments []string) int {
	if len(segments) != len(p.segments) {
		return -1
	}
	literals := 0
	for i, seg := range p.segments {
		if strings.HasPrefix(seg, ":") {
			if segments[i] == "" {
				return -1
			}
			continue
		}
		if seg != segments[i] {
			return -1
		}
		literals++
	}
	return literals
}

// PolicyTable maps endpoints to their Policy.
type PolicyTable struct {
	Version  int      `yaml:"version" json:"version"`
	Default  Strategy `yaml:"default" json:"default"`
	Policies []Policy `yaml:"policies" json:"policies"`
}

func splitPath(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// ParsePolicies decodes and checks a YAML policy table.
func ParsePolicies(data []byte) (*PolicyTable, error) {
	var pt PolicyTable
	if err := yaml.Unmarshal(data, &pt); err != nil {
		return nil, errors.Wrap(err, "decoding policies")
	}
	if pt.Default == "" {
		pt.Default = ServerWins
	}
	if !pt.Default.Valid() {
		return nil, fmt.Errorf("invalid default strategy %q", pt.Default)
	}

	seen := make(map[string]bool)
	for i := range pt.Policies {
		p := &pt.Policies[i]
		if !strings.HasPrefix(p.Endpoint, "/") {
			return nil, fmt.Errorf("policy %d: endpoint %q must start with /", i, p.Endpoint)
		}
		if !p.Strategy.Valid() {
			return nil, fmt.Errorf("policy %s: invalid strategy %q", p.Endpoint, p.Strategy)
		}
		if seen[p.Endpoint] {
			return nil, fmt.Errorf("policy %s: duplicate endpoint", p.Endpoint)
		}
		seen[p.Endpoint] = true
		for j, m := range p.Methods {
			p.Methods[j] = strings.ToUpper(m)
		}
		p.segments = splitPath(p.Endpoint)
	}
	return &pt, nil
}

// DefaultPolicies returns the policy table shipped with the application.
func DefaultPolicies() *PolicyTable {
	pt, err := ParsePolicies(defaultPolicies)
	if err != nil {
		panic(err) // the embedded table is checked by tests
	}
	return pt
}

// LoadPolicies reads the policy table from path, the embedded one when path is empty.
func LoadPolicies(path string) (*PolicyTable, error) {
	if path == "" {
		return DefaultPolicies(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading policies")
	}
	return ParsePolicies(data)
}

// Lookup finds the policy of a request. The most specific endpoint wins (literal segments
// beat `:params`), unknown endpoints fall back to the default strategy, uncached and unqueued.
func (pt *PolicyTable) Lookup(method, path string) Policy {
	segments := splitPath(path)
	best, bestScore := -1, -1
	for i, p := range pt.Policies {
		if !p.allows(method) {
			continue
		}
		if score := p.match(segments); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Policy{Endpoint: "/" + strings.Join(segments, "/"), Strategy: pt.Default, segments: segments}
	}
	return pt.Policies[best]
}

// PullEndpoints lists the collections refreshed by a full pull.
func (pt *PolicyTable) PullEndpoints() []string {
	var endpoints []string
	for _, p := range pt.Policies {
		if p.Pull {
			endpoints = append(endpoints, p.Endpoint)
		}
	}
	return endpoints
}

// Resource returns the collection a path belongs to and the record it targets, if any:
// "/api/students/42/status" -> ("students", "42").
func Resource(path string) (resource, id string) {
	segments := splitPath(path)
	if len(segments) > 0 && segments[0] == "api" {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "", ""
	}
	resource = segments[0]
	if len(segments) > 1 {
		id = segments[1]
	}
	return resource, id
}
