package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/folio/pkg/config"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/kv"
)

const (
	themeKeySuffix = "theme"
	typoKeySuffix  = "typo"
)

// Service persists the reader's global display preferences and publishes
// every change to subscribers.
type Service struct {
	store  *kv.Store
	prefix string

	// save keeps commits and publishes in the same order
	save sync.Mutex

	mu          sync.RWMutex
	current     *Preferences
	subscribers map[int]chan Preferences
	nextID      int
}

func NewService(store *kv.Store, cfg *config.Config) *Service {
	return &Service{
		store:       store,
		prefix:      cfg.PreferenceKeyPrefix,
		subscribers: map[int]chan Preferences{},
	}
}

func (svc *Service) themeKey() string {
	return kv.Key(svc.prefix, themeKeySuffix)
}

func (svc *Service) typoKey() string {
	return kv.Key(svc.prefix, typoKeySuffix)
}

// LoadPreferences reads the persisted preferences, falling back to defaults
// for anything missing or unreadable.
func (svc *Service) LoadPreferences(ctx context.Context) (*Preferences, error) {
	log := logger.FromContext(ctx)
	prefs := DefaultPreferences()

	err := svc.store.View(ctx, func(ctx context.Context, tx *kv.Tx) error {
		theme, err := tx.Get(ctx, svc.themeKey())
		switch {
		case err == nil:
			var t string
			if err := json.Unmarshal(theme, &t); err != nil || !IsValidTheme(t) {
				log.Warn("ignoring stored theme", logger.Data{"value": string(theme)})
			} else {
				prefs.Theme = t
			}
		case !errcodes.HasCode(err, errcodes.CodeNotFound):
			return err
		}

		typo, err := tx.Get(ctx, svc.typoKey())
		switch {
		case err == nil:
			t := TypographySettings{}
			if err := json.Unmarshal(typo, &t); err != nil || t.Validate() != nil {
				log.Warn("ignoring stored typography", logger.Data{"value": string(typo)})
			} else {
				prefs.Typography = t
			}
		case !errcodes.HasCode(err, errcodes.CodeNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// a value published by a save is never replaced by an older read
	svc.mu.Lock()
	if svc.current == nil {
		svc.current = &prefs
	}
	svc.mu.Unlock()

	return &prefs, nil
}

// SavePreferences validates and persists both halves in one transaction, then
// notifies subscribers.
func (svc *Service) SavePreferences(ctx context.Context, theme string, typo TypographySettings) (*Preferences, error) {
	if !IsValidTheme(theme) {
		return nil, errcodes.ValidationError(fmt.Sprintf("%q must be one of the following: %q, %q, %q", "theme", ThemeLight, ThemeSepia, ThemeDark))
	}
	if err := typo.Validate(); err != nil {
		return nil, err
	}

	themeValue, err := json.Marshal(theme)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	typoValue, err := json.Marshal(typo)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	svc.save.Lock()
	defer svc.save.Unlock()

	err = svc.store.Update(ctx, func(ctx context.Context, tx *kv.Tx) error {
		if err := tx.Put(ctx, svc.themeKey(), themeValue); err != nil {
			return err
		}
		return tx.Put(ctx, svc.typoKey(), typoValue)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	prefs := Preferences{Theme: theme, Typography: typo}
	svc.publish(prefs)

	logger.FromContext(ctx).Info("preferences saved", logger.Data{
		"theme":       prefs.Theme,
		"font_family": typo.FontFamily,
		"font_size":   typo.FontSizePx,
	})

	return &prefs, nil
}

// ToggleTheme advances the persisted theme one step and keeps the typography.
func (svc *Service) ToggleTheme(ctx context.Context) (*Preferences, error) {
	prefs, err := svc.LoadPreferences(ctx)
	if err != nil {
		return nil, err
	}
	return svc.SavePreferences(ctx, NextTheme(prefs.Theme), prefs.Typography)
}

// Current returns the last loaded or saved preferences, or the defaults when
// nothing has been loaded yet.
func (svc *Service) Current() Preferences {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if svc.current == nil {
		return DefaultPreferences()
	}
	return *svc.current
}

// Subscribe returns a channel that receives every saved value, and a function
// that unsubscribes and closes it. Slow subscribers only ever see the latest
// value.
func (svc *Service) Subscribe() (<-chan Preferences, func()) {
	ch := make(chan Preferences, 1)

	svc.mu.Lock()
	id := svc.nextID
	svc.nextID++
	svc.subscribers[id] = ch
	svc.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			svc.mu.Lock()
			delete(svc.subscribers, id)
			svc.mu.Unlock()
			close(ch)
		})
	}
}

func (svc *Service) publish(prefs Preferences) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.current = &prefs
	for _, ch := range svc.subscribers {
		// drop a stale pending value so the newest one always fits
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- prefs:
		default:
		}
	}
}
