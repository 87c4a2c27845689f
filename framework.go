// Package framework is the root of eventcore, an in-process event bus
// with a three-phase reliability model (idempotency check, primary
// handler with retry, terminal failure handler), synchronous and
// asynchronous dispatch, delayed publication, and an ordered
// interceptor chain for cross-cutting concerns like metrics and
// tracing.
//
// The bus itself lives in framework/eventbus; this package exposes
// module-wide metadata and a Component registry an application can use
// to start every bus, interceptor, and tracing manager it built together
// in registration order, and to stop them in reverse registration order.
//
// Example usage:
//
//	bus := eventbus.New("orders")
//	err := eventbus.For[OrderPlaced](bus, handler).
//		Retry(3, time.Second).
//		Primary(handler.Handle)
package framework

import (
	"context"
	"fmt"

	"eventcore/framework/core"
)

// Version is the module's semantic version.
const (
	Version = "1.0.0"
	Major   = 1
	Minor   = 0
	Patch   = 0
)

// Metadata describes the module.
type Metadata struct {
	Name        string
	Version     string
	Description string
	License     string
}

// GetMetadata returns the module's metadata.
func GetMetadata() Metadata {
	return Metadata{
		Name:        "eventcore",
		Version:     Version,
		Description: "In-process event bus with idempotency, retry, and interceptor support",
		License:     "MIT",
	}
}

// Framework is the top-level interface an application wires its
// components into.
type Framework interface {
	// Initialize starts every registered core.Lifecycle component.
	Initialize(ctx context.Context) error
	// Shutdown stops every registered core.Lifecycle component.
	Shutdown(ctx context.Context) error
	// GetComponent returns a previously registered component by name.
	GetComponent(name string) (core.Component, error)
	// RegisterComponent registers a component under its own Name().
	RegisterComponent(component core.Component) error
}

// BaseFramework is a Component registry: an application registers its
// buses, interceptors, and tracing managers with it once, and drives all
// of their core.Lifecycle implementations together through Initialize and
// Shutdown instead of starting and stopping each one by hand.
type BaseFramework struct {
	components []core.Component
	byName     map[string]core.Component
	metadata   Metadata
}

// New creates an empty BaseFramework.
func New() *BaseFramework {
	return &BaseFramework{
		byName:   make(map[string]core.Component),
		metadata: GetMetadata(),
	}
}

// Initialize starts every registered component that implements
// core.Lifecycle, in registration order. It stops at the first error.
func (f *BaseFramework) Initialize(ctx context.Context) error {
	for _, c := range f.components {
		lc, ok := c.(core.Lifecycle)
		if !ok {
			continue
		}
		if err := lc.Start(ctx); err != nil {
			return fmt.Errorf("initialize component %s: %w", c.Name(), err)
		}
	}
	return nil
}

// Shutdown stops every registered component that implements
// core.Lifecycle, in reverse registration order, continuing past
// individual failures and returning the first one encountered.
func (f *BaseFramework) Shutdown(ctx context.Context) error {
	var firstErr error
	for i := len(f.components) - 1; i >= 0; i-- {
		lc, ok := f.components[i].(core.Lifecycle)
		if !ok {
			continue
		}
		if err := lc.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown component %s: %w", f.components[i].Name(), err)
		}
	}
	return firstErr
}

// GetComponent returns a previously registered component by name.
func (f *BaseFramework) GetComponent(name string) (core.Component, error) {
	component, exists := f.byName[name]
	if !exists {
		return nil, fmt.Errorf("component %s not found", name)
	}
	return component, nil
}

// RegisterComponent registers component under its own Name(). Registering
// two components with the same name is an error.
func (f *BaseFramework) RegisterComponent(component core.Component) error {
	if _, exists := f.byName[component.Name()]; exists {
		return fmt.Errorf("component %s already registered", component.Name())
	}
	f.byName[component.Name()] = component
	f.components = append(f.components, component)
	return nil
}

// FrameworkVersion returns the module's version string.
func FrameworkVersion() string {
	return Version
}
