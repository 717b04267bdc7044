// Package secret provides strict environment expansion for secret-bearing
// configuration values.
//
// Values like the operator secret are written in config as "${VAR}"
// references. ExpandEnvStrict resolves them and fails loudly when a
// referenced variable is absent, so a misconfigured deployment refuses to
// start instead of running with an empty secret.
package secret
