// Package snapshot records the top-level commands of each tab and saves them
// to a file that can later be replayed into a tab.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quocvuong92/kshell/internal/command"
	"github.com/quocvuong92/kshell/internal/constants"
	"github.com/quocvuong92/kshell/internal/errors"
	"github.com/quocvuong92/kshell/internal/event"
	"github.com/quocvuong92/kshell/internal/logging"
	"github.com/quocvuong92/kshell/internal/plugins"
	"github.com/quocvuong92/kshell/internal/usage"
)

// Kind is the document kind of a snapshot file.
const Kind = "Snapshot"

// Document is the serialized form of a snapshot.
type Document struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Kind       string `json:"kind" yaml:"kind"`
	Spec       Spec   `json:"spec" yaml:"spec"`
}

// Spec holds the recorded commands.
type Spec struct {
	Created time.Time `json:"created" yaml:"created"`
	Entries []Entry   `json:"entries" yaml:"entries"`
}

// Options wires the snapshot plugin to the running shell.
type Options struct {
	Bus *event.Bus
	// Max bounds the entries recorded per tab
	Max int
}

// Plugin registers snapshot and replay.
type Plugin struct {
	bus      *event.Bus
	recorder *Recorder
	log      *logging.FieldLogger
}

// New creates the plugin and starts recording on opts.Bus.
func New(opts Options) *Plugin {
	p := &Plugin{bus: opts.Bus, recorder: NewRecorder(opts.Max), log: logging.Named("snapshot")}
	if p.bus != nil {
		p.recorder.Attach(p.bus)
	}
	return p
}

// Recorder returns the recorder feeding snapshots.
func (p *Plugin) Recorder() *Recorder { return p.recorder }

// Name implements plugins.Plugin.
func (*Plugin) Name() string { return "snapshot" }

// Register implements plugins.Plugin.
func (p *Plugin) Register(r plugins.Registrar) error {
	if _, err := r.Listen("/snapshot", p.snapshot, &command.Options{
		Docs:          "Save the commands run in this tab to a file",
		RequiresLocal: true,
		Usage: &usage.Model{
			Command: "snapshot",
			Example: "snapshot session.json",
			Strict:  true,
			Required: []usage.Row{{
				Name: "file", Docs: "destination, YAML when it ends in .yaml or .yml, else JSON",
			}},
		},
	}); err != nil {
		return err
	}
	_, err := r.Listen("/replay", p.replay, &command.Options{
		Docs:          "Replay a saved snapshot into this tab",
		RequiresLocal: true,
		Usage: &usage.Model{
			Command:  "replay",
			Example:  "replay session.json",
			Strict:   true,
			Required: []usage.Row{{Name: "file", Docs: "a file written by snapshot", File: true}},
		},
	})
	return err
}

var errNoTab = errors.New("no active tab")

func (p *Plugin) snapshot(ctx context.Context, args *command.Arguments) (any, error) {
	if args.Tab == nil {
		return nil, errNoTab
	}
	path := resolve(args, args.Rest()[0])
	doc := Document{
		APIVersion: constants.SnapshotAPIVersion,
		Kind:       Kind,
		Spec:       Spec{Created: time.Now().UTC(), Entries: p.recorder.Entries(args.Tab.UUID())},
	}
	if doc.Spec.Entries == nil {
		doc.Spec.Entries = []Entry{}
	}

	data, err := Marshal(doc, path)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	p.log.Info("snapshot written", logging.Fields{"path": path, "entries": len(doc.Spec.Entries)})
	return fmt.Sprintf("Saved %d commands to %s", len(doc.Spec.Entries), path), nil
}

func (p *Plugin) replay(ctx context.Context, args *command.Arguments) (any, error) {
	if args.Tab == nil {
		return nil, errNoTab
	}
	path := resolve(args, args.Rest()[0])
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	doc, err := Unmarshal(data, path)
	if err != nil {
		return nil, err
	}

	tabUUID := args.Tab.UUID()
	for _, entry := range doc.Spec.Entries {
		exec := event.Exec{
			TabUUID:  tabUUID,
			Route:    entry.Route,
			Command:  entry.Command,
			Type:     entry.Type,
			ExecUUID: entry.ExecUUID,
			Options:  entry.Options,
		}
		var resp any = entry.Response
		if entry.Error != "" {
			resp = errors.NewCoded(entry.Code, "", entry.Error, nil)
		}
		p.bus.Publish(event.NewCommandStartEvent(exec))
		p.bus.Publish(event.NewCommandCompleteEvent(exec, resp, entry.Cancelled, -1))
	}
	p.log.Info("snapshot replayed", logging.Fields{"path": path, "entries": len(doc.Spec.Entries)})
	return fmt.Sprintf("Replayed %d commands", len(doc.Spec.Entries)), nil
}

// Marshal encodes doc as YAML when path ends in .yaml or .yml, else as
// indented JSON.
func Marshal(doc Document, path string) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal decodes and validates a snapshot document.
func Unmarshal(data []byte, path string) (Document, error) {
	var doc Document
	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return Document{}, fmt.Errorf("invalid snapshot %s: %w", path, err)
	}
	if doc.APIVersion != constants.SnapshotAPIVersion {
		return Document{}, fmt.Errorf("unsupported snapshot apiVersion %q, want %q", doc.APIVersion, constants.SnapshotAPIVersion)
	}
	if doc.Kind != Kind {
		return Document{}, fmt.Errorf("unsupported snapshot kind %q", doc.Kind)
	}
	return doc, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func resolve(args *command.Arguments, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(args.Tab.Cwd(), path)
}
