// Package policyconfig hot-reloads a RoutingPolicy definition from a YAML
// file on disk, mirroring the teacher's RuntimeConfigManager/
// HotReloadSystem pair (engine/internal/runtime/runtime.go): a file
// watcher detects writes, a checksum guards against re-applying an
// unchanged file, and a validated policy is swapped in atomically via
// Service.UpdatePolicy.
package policyconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/cogbandwidth/router/internal/routing"
	"github.com/cogbandwidth/router/internal/routingerr"
)

// Document is the YAML shape a policy file is expected to carry.
type Document struct {
	Weights    routing.Weights    `yaml:"weights"`
	Thresholds routing.Thresholds `yaml:"thresholds"`
}

// Load reads and validates a policy document from path.
func Load(path string) (*routing.Policy, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	return routing.New(doc.Weights, doc.Thresholds)
}

func loadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, routingerr.Wrap(routingerr.KindConfigError, "read policy file", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, routingerr.Wrap(routingerr.KindConfigError, "parse policy file", err)
	}
	return doc, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PolicyChange is delivered on the Watcher's channel whenever the file at
// path changes into a different, validated policy.
type PolicyChange struct {
	Policy   *routing.Policy
	Checksum string
}

// Watcher watches a single policy file and emits validated PolicyChanges
// over Changes(). An invalid or unparsable update is reported on Errors()
// and the previously active policy is left untouched (spec §7 ConfigError
// "rejected at the boundary; no partial update").
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu           sync.Mutex
	watching     bool
	lastChecksum string

	changes chan PolicyChange
	errs    chan error
	done    chan struct{}
}

// NewWatcher creates a Watcher for the policy file at path. Start must be
// called to begin watching.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, routingerr.Wrap(routingerr.KindConfigError, "create policy file watcher", err)
	}
	return &Watcher{
		path:    path,
		watcher: fw,
		changes: make(chan PolicyChange, 4),
		errs:    make(chan error, 4),
		done:    make(chan struct{}),
	}, nil
}

// Changes returns the channel of validated policy updates.
func (w *Watcher) Changes() <-chan PolicyChange { return w.changes }

// Errors returns the channel of load/validation failures encountered while
// watching; these do not stop the watcher.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Start begins watching the policy file's containing directory (fsnotify
// watches directories more reliably than individual files across editors'
// atomic-rename save patterns) and reports the file's initial state as the
// first change, if it parses.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Unlock()
		return routingerr.Wrap(routingerr.KindConfigError, fmt.Sprintf("watch directory %s", dir), err)
	}
	w.watching = true
	w.mu.Unlock()

	go w.loop()

	if policy, sum, err := w.tryLoad(); err == nil {
		w.mu.Lock()
		w.lastChecksum = sum
		w.mu.Unlock()
		w.changes <- PolicyChange{Policy: policy, Checksum: sum}
	}
	return nil
}

// Stop closes the underlying file watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return nil
	}
	w.watching = false
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.changes)
	defer close(w.errs)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleWrite()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.errs <- err
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleWrite() {
	policy, sum, err := w.tryLoad()
	if err != nil {
		w.errs <- err
		return
	}

	w.mu.Lock()
	changed := sum != w.lastChecksum
	if changed {
		w.lastChecksum = sum
	}
	w.mu.Unlock()

	if changed {
		w.changes <- PolicyChange{Policy: policy, Checksum: sum}
	}
}

func (w *Watcher) tryLoad() (*routing.Policy, string, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, "", routingerr.Wrap(routingerr.KindConfigError, "read policy file", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "", routingerr.Wrap(routingerr.KindConfigError, "parse policy file", err)
	}
	policy, err := routing.New(doc.Weights, doc.Thresholds)
	if err != nil {
		return nil, "", err
	}
	return policy, checksum(data), nil
}
