package routing

import (
	"errors"
	"strings"
)

type RouteClass string

const (
	RouteClassUI          RouteClass = "ui"
	RouteClassInternalAPI RouteClass = "internal_api"
	RouteClassAuthn       RouteClass = "authn"
	RouteClassOps         RouteClass = "ops"
	RouteClassStatic      RouteClass = "static"
	RouteClassDevOnly     RouteClass = "dev_only"
)

// Classifier resolves a request path to its route class: allowlist exact
// matches first, then {param} patterns, then structural fallbacks.
type Classifier struct {
	entrypoint    string
	allowExact    map[string]RouteClass
	allowPatterns []patternRoute
}

type patternRoute struct {
	pattern PathPattern
	class   RouteClass
}

func NewClassifier(a Allowlist, entrypoint string) (*Classifier, error) {
	ep, ok := a.Entrypoints[entrypoint]
	if !ok {
		return nil, errors.New("allowlist: missing entrypoint")
	}
	if len(ep.Routes) == 0 {
		return nil, errors.New("allowlist: entrypoint routes empty")
	}

	exact := make(map[string]RouteClass, len(ep.Routes))
	var patterns []patternRoute
	for _, route := range ep.Routes {
		if route.Path == "" || route.RouteClass == "" {
			return nil, errors.New("allowlist: invalid route")
		}
		if p, ok := parsePathPattern(route.Path); ok {
			patterns = append(patterns, patternRoute{pattern: p, class: RouteClass(route.RouteClass)})
			continue
		}
		exact[route.Path] = RouteClass(route.RouteClass)
	}
	return &Classifier{entrypoint: entrypoint, allowExact: exact, allowPatterns: patterns}, nil
}

func (c *Classifier) Classify(path string) RouteClass {
	if class, ok := c.allowExact[path]; ok {
		return class
	}
	for _, p := range c.allowPatterns {
		if p.pattern.Match(path) {
			return p.class
		}
	}

	switch {
	case hasPrefixSegment(path, "/iam/api/sessions"):
		return RouteClassAuthn
	case isModuleInternalAPI(path):
		return RouteClassInternalAPI
	case path == "/health" || path == "/healthz":
		return RouteClassOps
	case hasPrefixSegment(path, "/_dev"):
		return RouteClassDevOnly
	case hasPrefixSegment(path, "/assets") || hasPrefixSegment(path, "/uploads"):
		return RouteClassStatic
	default:
		return RouteClassUI
	}
}

func hasPrefixSegment(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// isModuleInternalAPI recognizes the /{module}/api/* shape used by every
// application module.
func isModuleInternalAPI(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	rest := strings.TrimPrefix(path, "/")
	module, after, ok := strings.Cut(rest, "/")
	if !ok || module == "" {
		return false
	}
	return hasPrefixSegment("/"+after, "/api")
}
