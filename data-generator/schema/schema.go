// Description: This package provides a structured value generator producing synthetic K8s
// resource documents. Every field is derived from the seed so values can be validated.
package schema

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
)

var DEFAULT_RESOURCE_TYPES = []string{"pods", "services", "configmaps", "secrets", "deployments"}
var DEFAULT_NAMESPACES = []string{"default", "kube-system", "monitoring", "application"}

var environments = []string{"dev", "staging", "prod", "test"}
var teams = []string{"frontend", "backend", "data", "platform", "devops", "ml"}

// ResourceGenerator turns seeds into JSON encoded resources
type ResourceGenerator struct {
	resourceTypes []string
	namespaces    []string
}

// Represents common metadata for K8s resources
type ResourceMetadata struct {
	APIVersion string          `json:"apiVersion"`
	Kind       string          `json:"kind"`
	Metadata   ObjectMetadata  `json:"metadata"`
	Spec       json.RawMessage `json:"spec"`
	Status     json.RawMessage `json:"status"`
}

// Represents K8s object metadata
type ObjectMetadata struct {
	Name            string            `json:"name"`
	Namespace       string            `json:"namespace,omitempty"`
	Labels          map[string]string `json:"labels,omitempty"`
	ResourceVersion string            `json:"resourceVersion"`
}

func New() *ResourceGenerator {
	return &ResourceGenerator{
		resourceTypes: DEFAULT_RESOURCE_TYPES[:],
		namespaces:    DEFAULT_NAMESPACES[:],
	}
}

func (g *ResourceGenerator) GetResourceTypes() []string {
	return g.resourceTypes[:]
}

func (g *ResourceGenerator) GetNamespaces() []string {
	return g.namespaces[:]
}

// Generate creates the resource document for a seed. Marshalling a fixed struct cannot fail,
// so errors are not part of the generator contract.
func (g *ResourceGenerator) Generate(seed int64) []byte {
	value, err := g.GenerateResource(seed)
	if err != nil {
		panic(fmt.Sprintf("schema: marshal resource for seed %d: %v", seed, err))
	}
	return value
}

// GenerateResource creates a synthetic value for the resource
func (g *ResourceGenerator) GenerateResource(seed int64) ([]byte, error) {
	rg := rand.New(rand.NewSource(seed))
	resourceType := g.resourceTypes[rg.Intn(len(g.resourceTypes))]
	namespace := g.namespaces[rg.Intn(len(g.namespaces))]

	resource := ResourceMetadata{
		APIVersion: "v1",
		Kind:       strings.TrimSuffix(strings.ToUpper(resourceType[:1])+resourceType[1:], "s"),
		Metadata: ObjectMetadata{
			Name:            fmt.Sprintf("%s-%d", strings.TrimSuffix(resourceType, "s"), seed),
			Namespace:       namespace,
			Labels:          generateLabels(rg),
			ResourceVersion: fmt.Sprintf("%d", seed+1),
		},
	}

	// Add some dummy spec and status data
	replicas := rg.Intn(5) + 1
	spec := map[string]interface{}{
		"replicas": replicas,
		"selector": map[string]interface{}{
			"matchLabels": resource.Metadata.Labels,
		},
	}

	status := map[string]interface{}{
		"availableReplicas": replicas,
		"readyReplicas":     replicas,
		"updatedReplicas":   replicas,
	}

	specBytes, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	resource.Spec = specBytes

	statusBytes, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}
	resource.Status = statusBytes

	return json.Marshal(resource)
}

// generateLabels creates random labels
func generateLabels(rg *rand.Rand) map[string]string {
	labels := make(map[string]string)
	labels["environment"] = environments[rg.Intn(len(environments))]
	labels["team"] = teams[rg.Intn(len(teams))]
	return labels
}
