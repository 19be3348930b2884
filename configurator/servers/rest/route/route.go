// Package route implements a Route type used to define the routes of the
// configurator REST server
package route

import (
	"net/http"
)

// Route models a route to be set on the REST server
type Route struct {
	Name        string
	Description string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// Routes is a table of many Route's
type Routes []Route
