// Package flowconfig loads a flowmesh node's configuration from its
// environment, the only configuration surface flowmesh supports — no
// config file layering, no KV-backed live reload. Load reads every
// FLOWMESH_* variable once and returns a Config; Config.Validate
// reports every problem it finds at once rather than failing fast
// on the first bad field.
//
//	cfg, err := flowconfig.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
package flowconfig
