// Package config provides loading and environment overlay for utubettl
// runtime configuration. It exposes a Default() baseline, a JSON file
// loader, and a UTUBETTL_* environment overlay; the resulting Config is
// passed to the runtime as runtime.Options.Config.
//
// Example:
//
//	cfg := config.Default()
//	// Optionally load from file and overlay env vars
//	if fileCfg, err := config.Load("/etc/utubettl.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	// Pass cfg into runtime.Options; the store is always in memory
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
