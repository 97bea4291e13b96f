package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/mannequin/pkg/animation"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Registrar is the part of animation.Registry that Watch needs.
type Registrar interface {
	Register(s animation.Script)
	Unregister(name string)
}

// LoadDir registers every script file in dir and returns their names.
// Scripts evaluate with the given timeout; zero keeps EvalTimeout.
// Files that cannot be read are logged and skipped.
func LoadDir(dir string, reg Registrar, timeout time.Duration, log logrus.FieldLogger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read script dir %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !isScriptFile(e.Name()) {
			continue
		}
		s, err := LoadScript(filepath.Join(dir, e.Name()))
		if err != nil {
			log.WithError(err).WithField("file", e.Name()).Warn("skipping script")
			continue
		}
		reg.Register(s.WithScriptTimeout(timeout))
		names = append(names, s.Name())
	}
	return names, nil
}

// Watch loads the scripts in dir and keeps reg in sync with the directory
// until ctx ends. Written files are re-registered; removed or renamed ones
// are unregistered. Every script evaluates with timeout.
func Watch(ctx context.Context, dir string, reg Registrar, timeout time.Duration, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}
	names, err := LoadDir(dir, reg, timeout, log)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"dir": dir, "scripts": names}).Info("watching scripts")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleEvent(event, reg, timeout, log)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("script watcher")
		}
	}
}

func handleEvent(event fsnotify.Event, reg Registrar, timeout time.Duration, log logrus.FieldLogger) {
	if !isScriptFile(event.Name) {
		return
	}
	name := ScriptName(event.Name)
	entry := log.WithFields(logrus.Fields{"script": name, "op": event.Op.String()})

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		reg.Unregister(name)
		entry.Info("script removed")
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		s, err := LoadScript(event.Name)
		if err != nil {
			entry.WithError(err).Warn("script reload failed")
			return
		}
		reg.Register(s.WithScriptTimeout(timeout))
		entry.Info("script loaded")
	}
}

func isScriptFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ScriptExt)
}
