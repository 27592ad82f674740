// Package storage implements spec.md §6's optional serialized Rule Set
// format: "implementations MAY offer a serialized Rule Set format for
// distribution". Grounded on the teacher's rule_store_disk.go
// (FileSystem-injected, write-to-temp-then-rename persistence), adapted
// from per-rule CRUD against a live JSON store to whole-Rule-Set
// load/save against YAML, since spec.md §3 makes a compiled Rule Set
// immutable — there is no runtime Create/Update/Delete to persist, only
// "load the set this process will compile" and "save the set a caller
// assembled".
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/symbolica/symbolica/pkg/rule"
)

// RuleSetDocument is the on-disk YAML shape of a Rule Set: the
// uncompiled rule.Source list plus a format version, so a future
// incompatible change can be detected before CompileSet ever sees it.
type RuleSetDocument struct {
	Version int           `yaml:"version"`
	Rules   []rule.Source `yaml:"rules"`
}

const currentVersion = 1

// DiskRuleSetStore persists a Rule Set's source form to disk for
// distribution and recovery after restart.
type DiskRuleSetStore struct {
	filePath string
	fs       FileSystem
}

// NewDiskRuleSetStore creates a store backed by real disk I/O.
func NewDiskRuleSetStore(dataDir string) (*DiskRuleSetStore, error) {
	return NewDiskRuleSetStoreWithFS(dataDir, &RealFileSystem{})
}

// NewDiskRuleSetStoreWithFS creates a store with an injectable
// filesystem (for testing).
func NewDiskRuleSetStoreWithFS(dataDir string, fs FileSystem) (*DiskRuleSetStore, error) {
	if err := fs.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &DiskRuleSetStore{
		filePath: filepath.Join(dataDir, "ruleset.yaml"),
		fs:       fs,
	}, nil
}

// Save serializes sources to YAML and writes them atomically (write to
// a temp file, then rename — crash-safe, matching the teacher's
// persist()).
func (s *DiskRuleSetStore) Save(sources []rule.Source) error {
	doc := RuleSetDocument{Version: currentVersion, Rules: sources}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal rule set: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := s.fs.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write rule set: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("failed to rename rule set file: %w", err)
	}
	return nil
}

// Load reads and parses the persisted Rule Set's sources. A missing
// file is not an error — it reports ok=false for a fresh-start caller
// to distinguish from a real read failure.
func (s *DiskRuleSetStore) Load() (sources []rule.Source, ok bool, err error) {
	data, err := s.fs.ReadFile(s.filePath)
	if err != nil {
		if _, statErr := s.fs.Stat(s.filePath); os.IsNotExist(statErr) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read rule set: %w", err)
	}

	var doc RuleSetDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal rule set: %w", err)
	}
	if doc.Version != currentVersion {
		return nil, false, fmt.Errorf("unsupported rule set format version %d (want %d)", doc.Version, currentVersion)
	}
	return doc.Rules, true, nil
}

// LoadAndCompile loads the persisted sources and compiles them into a
// Rule Set in one step.
func (s *DiskRuleSetStore) LoadAndCompile() (*rule.Set, bool, error) {
	sources, ok, err := s.Load()
	if err != nil || !ok {
		return nil, ok, err
	}
	set, err := rule.CompileSet(sources)
	if err != nil {
		return nil, true, fmt.Errorf("failed to compile persisted rule set: %w", err)
	}
	return set, true, nil
}
