package hypervisor

import (
	"context"

	"github.com/alexisbeaulieu97/sunbeam/internal/reconcile"
)

// Settings is the part of Client used by the configuration steps.
type Settings interface {
	Get(ctx context.Context, section string) (reconcile.Values, error)
	Update(ctx context.Context, section string, values reconcile.Values) (reconcile.Values, error)
}

// SectionTarget adapts one settings section to reconcile.Target.
type SectionTarget struct {
	settings Settings
	name     string
}

// Section returns the reconcile target for section name.
func Section(settings Settings, name string) *SectionTarget {
	return &SectionTarget{settings: settings, name: name}
}

// Name is the section being reconciled.
func (s *SectionTarget) Name() string { return s.name }

func (s *SectionTarget) Get(ctx context.Context) (reconcile.Values, error) {
	return s.settings.Get(ctx, s.name)
}

func (s *SectionTarget) Update(ctx context.Context, values reconcile.Values) (reconcile.Values, error) {
	return s.settings.Update(ctx, s.name, values)
}
