// Package config resolves blogflow configuration from layered sources.
//
// Values are merged with the following priority, highest first:
//
//  1. Command-line flags
//  2. Environment variables (BLOGFLOW_ prefix)
//  3. Local config (.blogflow.yaml in the git root)
//  4. Global config (~/.config/blogflow/config.yaml)
//  5. Built-in defaults
//
// Secrets such as API tokens belong in the global config or the
// environment. Project settings such as database IDs and the store
// backend belong in the local config, which is committed alongside
// the content repository.
//
// Usage:
//
//	resolver := config.NewResolver()
//	settings, err := config.SettingsFrom(resolver.Resolve())
//	if err != nil {
//		log.Fatal(err) // *config.Error lists what is missing
//	}
package config
