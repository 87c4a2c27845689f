package core

import "context"

// Component is the base interface every framework component implements so
// it can be registered with a BaseFramework.
type Component interface {
	// Name returns the component's identifier.
	Name() string
	// Type reports what kind of component this is.
	Type() ComponentType
}

// Lifecycle is implemented by components a BaseFramework starts and stops
// as part of its own Initialize/Shutdown.
type Lifecycle interface {
	// Start starts the component.
	Start(ctx context.Context) error
	// Stop stops the component.
	Stop(ctx context.Context) error
	// IsRunning reports whether the component is currently running.
	IsRunning() bool
}

// HealthCheckable is implemented by components that can report their own
// health beyond simply being started.
type HealthCheckable interface {
	// HealthCheck returns a non-nil error if the component is unhealthy.
	HealthCheck(ctx context.Context) error
}
