package routes

import "fmt"

const apiVersion = "v0"

// Version returns the current API version string used in routing (e.g., "v0").
func Version() string {
	return apiVersion
}

// Base returns the versioned API base path (e.g., "/api/v0").
func Base() string {
	return fmt.Sprintf("/api/%s", Version())
}

func buildResourceRoute(resource string) string {
	return Base() + "/" + resource
}

// Lists returns the list views base path (e.g., "/api/v0/lists").
func Lists() string { return buildResourceRoute("lists") }

// List returns the path of one list kind (e.g., "/api/v0/lists/vendors").
func List(kind string) string { return Lists() + "/" + kind }

func Favorites() string { return buildResourceRoute("favorites") }
func Theme() string     { return buildResourceRoute("theme") }

// HealthVersioned returns the versioned health path (e.g., "/api/v0/health").
func HealthVersioned() string {
	return Base() + "/health"
}

// Metrics is served outside the versioned API.
func Metrics() string {
	return "/metrics"
}
