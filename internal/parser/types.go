// Package parser extracts endpoint inventories from the four coverage sources:
// client-library macros, the Fleet API documentation page, the JSON catalog
// and the vehicle command table.
package parser

import (
	"fmt"
	"strings"
)

// Source names, used as cache keys, log fields and report columns.
const (
	SourceMacro   = "macro"
	SourceFleet   = "fleet"
	SourceCatalog = "catalog"
	SourceCommand = "command"
)

// Method is an HTTP verb accepted by the API.
type Method string

// Known methods.
const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// ParseMethod validates s against the known verbs.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.TrimSpace(s)); m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return m, nil
	default:
		return "", fmt.Errorf("unknown method %q", s)
	}
}

// Restful is the method+URI view shared by the sources that describe REST
// endpoints.
type Restful interface {
	HTTPMethod() Method
	Path() string
}

// SourceFile is one file of the client library, already read.
type SourceFile struct {
	Path    string
	Content string
}

// MacroEndpoint is an endpoint declared by a macro call in the client
// library.
type MacroEndpoint struct {
	Name   string `json:"name"`
	Method Method `json:"method"`
	URI    string `json:"uri"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// HTTPMethod implements Restful.
func (e MacroEndpoint) HTTPMethod() Method { return e.Method }

// Path implements Restful.
func (e MacroEndpoint) Path() string { return e.URI }

// WithName returns a copy of e under a new key.
func (e MacroEndpoint) WithName(name string) MacroEndpoint {
	e.Name = name
	return e
}

// FleetEndpoint is an endpoint documented on the Fleet API page.
type FleetEndpoint struct {
	Name     string   `json:"name"`
	Method   Method   `json:"method"`
	URI      string   `json:"uri"`
	Category Category `json:"category"`
	Scopes   []Scope  `json:"scopes,omitempty"`
	Examples int      `json:"examples"`
}

// HTTPMethod implements Restful.
func (e FleetEndpoint) HTTPMethod() Method { return e.Method }

// Path implements Restful.
func (e FleetEndpoint) Path() string { return e.URI }

// WithName returns a copy of e under a new key.
func (e FleetEndpoint) WithName(name string) FleetEndpoint {
	e.Name = name
	return e
}

// CatalogEndpoint is an entry of the community JSON catalog.
type CatalogEndpoint struct {
	Name   string `json:"name"`
	Method Method `json:"method"`
	URI    string `json:"uri"`
	Auth   bool   `json:"auth"`
}

// HTTPMethod implements Restful.
func (e CatalogEndpoint) HTTPMethod() Method { return e.Method }

// Path implements Restful.
func (e CatalogEndpoint) Path() string { return e.URI }

// WithName returns a copy of e under a new key.
func (e CatalogEndpoint) WithName(name string) CatalogEndpoint {
	e.Name = name
	return e
}

// CommandEndpoint is a command of the vehicle command-line tool. It has no
// method or URI.
type CommandEndpoint struct {
	Name             string     `json:"name"`
	Help             string     `json:"help"`
	RequiresAuth     bool       `json:"requires_auth"`
	RequiresFleetAPI bool       `json:"requires_fleet_api"`
	Args             []Argument `json:"args,omitempty"`
	Optional         []Argument `json:"optional,omitempty"`
}

// Argument is a command argument descriptor.
type Argument struct {
	Name string `json:"name"`
	Help string `json:"help"`
}

// Category is a documentation section that groups endpoints.
type Category string

// Known categories, matching the h1 ids of the documentation page.
const (
	CategoryChargingEndpoints Category = "charging-endpoints"
	CategoryPartnerEndpoints  Category = "partner-endpoints"
	CategoryUserEndpoints     Category = "user-endpoints"
	CategoryVehicleCommands   Category = "vehicle-commands"
	CategoryVehicleEndpoints  Category = "vehicle-endpoints"
)

// ParseCategory reports whether id names a known category.
func ParseCategory(id string) (Category, bool) {
	switch c := Category(id); c {
	case CategoryChargingEndpoints, CategoryPartnerEndpoints, CategoryUserEndpoints,
		CategoryVehicleCommands, CategoryVehicleEndpoints:
		return c, true
	default:
		return "", false
	}
}

// Scope is an OAuth scope an endpoint requires.
type Scope string

// Known scopes.
const (
	// ScopeUserData covers contact information, home address, profile picture
	// and referral information.
	ScopeUserData Scope = "user_data"
	// ScopeVehicleDeviceData covers live data, location, upgrades, nearby
	// superchargers, ownership and service scheduling.
	ScopeVehicleDeviceData Scope = "vehicle_device_data"
	// ScopeVehicleCmds covers commands such as unlock, wake up and remote start.
	ScopeVehicleCmds Scope = "vehicle_cmds"
	// ScopeVehicleChargingCmds covers charging history and charge control.
	ScopeVehicleChargingCmds Scope = "vehicle_charging_cmds"
	// ScopeEnergyDeviceData covers energy flow history, tariffs and site status.
	ScopeEnergyDeviceData Scope = "energy_device_data"
	// ScopeEnergyCmds covers energy product commands such as storm mode.
	ScopeEnergyCmds Scope = "energy_cmds"
)

// ParseScope reports whether s names a known scope.
func ParseScope(s string) (Scope, bool) {
	switch sc := Scope(strings.TrimSpace(s)); sc {
	case ScopeUserData, ScopeVehicleDeviceData, ScopeVehicleCmds,
		ScopeVehicleChargingCmds, ScopeEnergyDeviceData, ScopeEnergyCmds:
		return sc, true
	default:
		return "", false
	}
}
