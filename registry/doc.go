// Package registry provides a single generic lookup table shared by
// named components and named strategies. Both component.Component and
// component.Strategy implement Entity, so one Registry type serves
// either, stripped down to the put/get/list surface this runtime
// actually needs, since flowmesh has no factory/instance split or
// dynamic component creation from configuration.
package registry
