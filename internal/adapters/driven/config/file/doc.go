// Package file provides file-based configuration adapters.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - Config: typed TOML or YAML configuration with defaults and validation
//   - PromptStore: user-editable completion prompts
package file
