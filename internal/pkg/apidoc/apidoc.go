package apidoc

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// DefaultPath is the public OpenAPI document served under /docs/api/v1.
const DefaultPath = "public/docs/v1/openapi.yml"

var fiberParam = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

// Load reads and validates the OpenAPI document at path.
func Load(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// OpenAPIPath converts a fiber route ("/payouts/:id/settle") to OpenAPI
// templating ("/payouts/{id}/settle").
func OpenAPIPath(fiberPath string) string {
	return fiberParam.ReplaceAllString(fiberPath, "{$1}")
}

// Documents reports whether doc describes method on the fiber route path.
func Documents(doc *openapi3.T, method, fiberPath string) bool {
	if doc == nil || doc.Paths == nil {
		return false
	}
	item := doc.Paths.Find(OpenAPIPath(fiberPath))
	if item == nil {
		return false
	}
	return item.GetOperation(strings.ToUpper(method)) != nil
}
