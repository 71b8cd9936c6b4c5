package estimate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Keywords holds the keyword tables the estimator scores against. The
// tables are data, not code, so they can be swapped for another working
// language without touching the scoring logic.
type Keywords struct {
	// High lists high-effort verbs and nouns, worth 3 points each.
	High []string `yaml:"high"`
	// Medium lists medium-effort keywords, worth 2 points each.
	Medium []string `yaml:"medium"`
	// Low lists low-effort keywords, worth 1 point each.
	Low []string `yaml:"low"`
	// Learning marks learning/educational tasks, which get a denser
	// subtasks-per-day rate.
	Learning []string `yaml:"learning"`
	// Project marks project/development tasks, the densest category.
	Project []string `yaml:"project"`
	// Research marks research/planning tasks, which get the sparsest rate.
	Research []string `yaml:"research"`
}

// DefaultKeywords returns the built-in Turkish keyword tables.
func DefaultKeywords() Keywords {
	return Keywords{
		High:     []string{"proje", "sistem", "geliştir", "oluştur", "tasarla", "analiz", "araştır", "öğren", "eğitim", "kurs", "öğret", "eğit"},
		Medium:   []string{"hazırla", "planla", "organize", "düzenle", "kontrol", "test", "gözden geçir", "çalış", "pratik"},
		Low:      []string{"gönder", "ara", "oku", "yaz", "kaydet", "güncelle", "sil", "kontrol et"},
		Learning: []string{"eğitim", "kurs", "öğren"},
		Project:  []string{"proje", "geliştir"},
		Research: []string{"araştır", "analiz", "plan"},
	}
}

// LoadKeywords reads keyword tables from a YAML file. Missing tiers fall
// back to the built-in defaults so a partial file only overrides what it
// names.
func LoadKeywords(path string) (Keywords, error) {
	kw := DefaultKeywords()

	data, err := os.ReadFile(path)
	if err != nil {
		return kw, fmt.Errorf("read keywords file: %w", err)
	}

	var loaded Keywords
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return kw, fmt.Errorf("parse keywords file %s: %w", path, err)
	}

	if len(loaded.High) > 0 {
		kw.High = loaded.High
	}
	if len(loaded.Medium) > 0 {
		kw.Medium = loaded.Medium
	}
	if len(loaded.Low) > 0 {
		kw.Low = loaded.Low
	}
	if len(loaded.Learning) > 0 {
		kw.Learning = loaded.Learning
	}
	if len(loaded.Project) > 0 {
		kw.Project = loaded.Project
	}
	if len(loaded.Research) > 0 {
		kw.Research = loaded.Research
	}

	return kw, nil
}

// KeywordWatcher reloads a keyword file when it changes on disk and swaps
// the new tables into the estimator.
type KeywordWatcher struct {
	path      string
	estimator *Estimator

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// WatchKeywords starts watching path and applies reloaded tables to the
// estimator on every write. The initial load happens before returning.
func WatchKeywords(path string, est *Estimator) (*KeywordWatcher, error) {
	kw, err := LoadKeywords(path)
	if err != nil {
		return nil, err
	}
	est.SetKeywords(kw)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory so editors that replace the file atomically
	// still trigger a reload.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	kwatch := &KeywordWatcher{
		path:      path,
		estimator: est,
		watcher:   watcher,
		done:      make(chan struct{}),
	}
	go kwatch.run()

	return kwatch, nil
}

func (w *KeywordWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if kw, err := LoadKeywords(w.path); err == nil {
				w.estimator.SetKeywords(kw)
			}
		case <-w.watcher.Errors:
			// Keep watching.
		}
	}
}

// Close stops the watcher.
func (w *KeywordWatcher) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.watcher.Close()
}
