// Package manifest reads the list of items an external downloader finished
// and replays it through a progress controller.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"time"

	"bookdl/pkg/checkpoint"
	"bookdl/pkg/logger"
	"bookdl/pkg/progress"

	"gopkg.in/yaml.v3"
)

// Manifest lists the outcome of every item of a job
type Manifest struct {
	Total int    `yaml:"total"`
	Items []Item `yaml:"items"`
}

// Item is one entry of a manifest
type Item struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title,omitempty"`
	Path      string     `yaml:"path,omitempty"`
	URL       string     `yaml:"url,omitempty"`
	UpdatedAt *time.Time `yaml:"updated_at,omitempty"`
	Failed    bool       `yaml:"failed,omitempty"`
}

// Summary counts what a replay did
type Summary struct {
	Recorded int
	Failed   int
	Skipped  int
	// Dropped items arrived after the job was already counted as complete
	Dropped int
}

// Load reads a YAML manifest from path
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML manifest. Total defaults to the number
// of items.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Total == 0 {
		m.Total = len(m.Items)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every item has a unique ID and that the total covers them
func (m *Manifest) Validate() error {
	var errs []error

	if m.Total < len(m.Items) {
		errs = append(errs, fmt.Errorf("total %d is less than the %d listed items", m.Total, len(m.Items)))
	}

	seen := make(map[string]bool, len(m.Items))
	for i, item := range m.Items {
		if item.ID == "" {
			errs = append(errs, fmt.Errorf("item %d has no id", i))
			continue
		}
		if seen[item.ID] {
			errs = append(errs, fmt.Errorf("duplicate item %q", item.ID))
		}
		seen[item.ID] = true
	}

	return errors.Join(errs...)
}

// Record converts the item into a checkpoint record, leaving empty fields unset
func (i Item) Record() checkpoint.Record {
	rec := checkpoint.Record{ID: i.ID, UpdatedAt: i.UpdatedAt}
	if i.Title != "" {
		rec.Title = checkpoint.String(i.Title)
	}
	if i.Path != "" {
		rec.Path = checkpoint.String(i.Path)
	}
	if i.URL != "" {
		rec.URL = checkpoint.String(i.URL)
	}
	return rec
}

// Replay feeds every item through an initialized controller in order.
//
// Outside incremental mode, items the checkpoint already holds were counted
// by Init and are skipped. Items arriving once the controller has counted
// every item are dropped with a warning, since the controller ignores them.
// onFailure runs with the display paused so it can print freely; it may be nil.
func Replay(c *progress.Controller, m *Manifest, log logger.Logger, onFailure func(Item)) (Summary, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	var summary Summary

	for _, item := range m.Items {
		if !c.Incremental() && c.Completed(item.ID) {
			summary.Skipped++
			continue
		}

		if c.Current() >= c.Total() {
			log.WithField("item", item.ID).Warn("Job already complete, item not recorded")
			summary.Dropped++
			continue
		}

		if item.Failed {
			if onFailure != nil {
				c.Pause()
				onFailure(item)
				c.Continue()
			}
			if err := c.Update(item.Record(), false); err != nil {
				return summary, err
			}
			summary.Failed++
			continue
		}

		if prev, ok := c.Lookup(item.ID); ok && item.UpdatedAt != nil && !prev.IsStale(*item.UpdatedAt) {
			log.WithField("item", item.ID).Debug("Item unchanged since last run")
		}
		if err := c.Update(item.Record(), true); err != nil {
			return summary, fmt.Errorf("failed to record %q: %w", item.ID, err)
		}
		summary.Recorded++
	}

	return summary, nil
}
