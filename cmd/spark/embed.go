package main

import _ "embed"

// embeddedConfig is the base layer of the configuration. Packagers may
// replace spark.yaml before building to ship different defaults.
//
//go:embed spark.yaml
var embeddedConfig []byte
