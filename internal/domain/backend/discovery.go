package backend

import (
	"os"
	"os/exec"
	"strings"
)

// LookupEnvFunc reads an environment variable (os.LookupEnv in production).
type LookupEnvFunc func(key string) (string, bool)

// LookPathFunc resolves a binary name on PATH (exec.LookPath in production).
type LookPathFunc func(file string) (string, error)

// Discover resolves which catalog backends are installed. A non-empty filter
// restricts discovery to the named backends. Backends whose binary cannot be
// resolved are skipped without error; an empty result is the caller's concern.
func Discover(filter []string) []Config {
	return DiscoverWith(filter, os.LookupEnv, exec.LookPath)
}

// DiscoverWith is Discover with injectable environment and PATH lookups.
func DiscoverWith(filter []string, lookupEnv LookupEnvFunc, lookPath LookPathFunc) []Config {
	allowed := toNameSet(filter)

	var found []Config
	for _, spec := range Catalog() {
		if len(allowed) > 0 && !allowed[spec.Name] {
			continue
		}
		bin, ok := resolveBinary(spec, lookupEnv, lookPath)
		if !ok {
			continue
		}
		cfg := Config{
			Name:               spec.Name,
			DisplayName:        spec.DisplayName,
			Binary:             bin,
			Model:              spec.DefaultModel,
			AutoApprove:        spec.AutoApprove,
			CredentialEnv:      spec.CredentialEnv,
			Format:             spec.Format,
			NativeSystemPrompt: spec.NativeSystemPrompt,
			LocalModel:         spec.LocalModel,
		}
		if spec.LocalModel {
			if m, ok := lookupEnv(ollamaModelEnv); ok && strings.TrimSpace(m) != "" {
				cfg.Model = strings.TrimSpace(m)
			}
		}
		found = append(found, cfg)
	}
	return found
}

// resolveBinary checks the override variable first, then PATH.
func resolveBinary(spec Spec, lookupEnv LookupEnvFunc, lookPath LookPathFunc) (string, bool) {
	if v, ok := lookupEnv(spec.OverrideEnv); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	p, err := lookPath(spec.Binary)
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}

func toNameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		set[n] = true
	}
	return set
}
