package http

import (
	"acfsgateway/internal/contexthealth"
	"acfsgateway/internal/eventhub"
	"acfsgateway/internal/maintenance"
	"acfsgateway/internal/snapshot"
	"acfsgateway/internal/toolprobe"
	"acfsgateway/internal/toolregistry"
	"acfsgateway/internal/updatecheck"
)

// RouterDeps collects every coordination core the HTTP layer fronts.
type RouterDeps struct {
	Registry        *toolregistry.Registry
	Detector        *toolprobe.Detector
	Agents          []toolprobe.CLIDefinition
	Tools           []toolprobe.CLIDefinition
	SnapshotService *snapshot.Service
	ContextHealth   *contexthealth.Engine
	Maintenance     *maintenance.Coordinator
	Updates         *updatecheck.Checker
	Hub             eventhub.Bus
}

// RouterConfig controls cross-cutting HTTP concerns.
type RouterConfig struct {
	AllowedOrigins []string
	Environment    string
}
