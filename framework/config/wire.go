package config

import "eventcore/framework/eventbus"

// ToEventbusDelayedConfig translates the environment-loaded delayed
// section into the type eventbus.NewAsync's WithDelayedConfig expects.
func (c DelayedConfig) ToEventbusDelayedConfig() eventbus.DelayedConfig {
	return eventbus.DelayedConfig{
		CoreWorkers:      c.CoreWorkers,
		ThreadNamePrefix: c.ThreadNamePrefix,
	}
}

// AsyncOptions builds the eventbus.AsyncOption set this configuration
// describes, ready to pass to eventbus.NewAsync.
func (c *Config) AsyncOptions(busOpts ...eventbus.Option) []eventbus.AsyncOption {
	opts := []eventbus.AsyncOption{
		eventbus.WithAsyncWorkers(c.AsyncWorkers),
		eventbus.WithDelayedConfig(c.Delayed.ToEventbusDelayedConfig()),
	}
	if len(busOpts) > 0 {
		opts = append(opts, eventbus.WithBusOptions(busOpts...))
	}
	return opts
}

// BusOptions builds the eventbus.Option set for a synchronous EventBus.
func (c *Config) BusOptions() []eventbus.Option {
	return []eventbus.Option{
		eventbus.WithMaxSubscribersPerEvent(c.MaxSubscribersPerEvent),
	}
}
