package wire

import (
	"reflect"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

var schemaTypes = map[string]any{
	"process-invoice": ProcessInvoiceResponse{},
	"single-score":    SingleScoreResponse{},
	"score-request":   ScoreRequest{},
	"credit-analysis": CreditScoreAnalysis{},
	"dashboard-score": DashboardResponse{},
	"invoice-list":    InvoiceListResponse{},
	"auth":            AuthResponse{},
	"invoice":         Invoice{},
	"business":        BusinessResponse{},
	"policies":        PolicyListResponse{},
	"policy-drafts":   GeneratePoliciesResponse{},
	"error":           ErrorBody{},
}

// SchemaNames lists the payloads Schema can describe.
func SchemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for name := range schemaTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the JSON Schema of a wire payload, or false for an unknown name.
func Schema(name string) (*jsonschema.Schema, bool) {
	v, ok := schemaTypes[name]
	if !ok {
		return nil, false
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return reflector.Reflect(v), true
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
