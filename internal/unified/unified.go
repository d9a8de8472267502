// Package unified composes region detection with the address providers.
// Exactly one provider is live at a time and a value never crosses from
// one address kind to another.
package unified

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/internal/provider"
	"github.com/sells-group/addrkit/internal/region"
)

// Status summarizes the unified input for display next to the provider.
type Status struct {
	Kind       model.Kind      `json:"kind" yaml:"kind"`
	Overridden bool            `json:"overridden" yaml:"overridden"`
	Detection  model.Detection `json:"detection" yaml:"detection"`
	Loading    bool            `json:"loading" yaml:"loading"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Input owns the active provider and the value held by the host form.
type Input struct {
	session  *region.Session
	registry *provider.Registry
	cb       provider.Callbacks

	mu       sync.Mutex
	override model.Kind
	value    *model.Address
	active   provider.Input
	gen      uint64
}

// New builds the input and its first provider. session may be nil, in
// which case the global provider is used until a kind is selected.
func New(session *region.Session, registry *provider.Registry, value *model.Address, cb provider.Callbacks) (*Input, error) {
	u := &Input{session: session, registry: registry, cb: cb, value: value}
	if err := u.rebuild(u.CurrentKind()); err != nil {
		return nil, err
	}
	return u, nil
}

// CurrentKind is the manual override if one was selected, else the kind
// serving the detected region. It falls back to global.
func (u *Input) CurrentKind() model.Kind {
	u.mu.Lock()
	override := u.override
	u.mu.Unlock()
	if override != "" {
		return override
	}
	if u.session == nil {
		return model.KindGlobal
	}
	r := u.session.Detection().Region
	if r == "" {
		return model.KindGlobal
	}
	return model.KindForRegion(r)
}

// Active returns the live provider.
func (u *Input) Active() provider.Input {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.active
}

// Value returns the value last relayed to the host.
func (u *Input) Value() *model.Address {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.value
}

// Select switches to the provider for k. The held value is cleared with
// OnChange(nil) followed by OnClear, and korea/global selections are
// propagated to the detection session.
func (u *Input) Select(k model.Kind) error {
	if !k.Valid() {
		return eris.Errorf("unified: unknown address kind %q", k)
	}
	if r, ok := model.RegionForKind(k); ok && u.session != nil {
		u.session.SetRegion(r)
	}

	u.mu.Lock()
	u.override = k
	u.value = nil
	u.mu.Unlock()

	if err := u.rebuild(k); err != nil {
		return err
	}
	zap.L().Debug("unified: kind selected", zap.String("kind", string(k)))

	if u.cb.OnChange != nil {
		u.cb.OnChange(nil)
	}
	if u.cb.OnClear != nil {
		u.cb.OnClear()
	}
	return nil
}

// Sync rebuilds the provider when the current kind no longer matches it,
// typically after detection finished. The held value is passed on only if
// it matches the new kind; nothing is emitted.
func (u *Input) Sync() error {
	k := u.CurrentKind()
	if active := u.Active(); active != nil && active.Kind() == k {
		return nil
	}
	return u.rebuild(k)
}

// Redetect reruns detection and then syncs the provider.
func (u *Input) Redetect(ctx context.Context) error {
	if u.session != nil {
		u.session.Redetect(ctx)
	}
	return u.Sync()
}

// Status reports the current kind and detection state.
func (u *Input) Status() Status {
	u.mu.Lock()
	overridden := u.override != ""
	u.mu.Unlock()

	st := Status{Kind: u.CurrentKind(), Overridden: overridden}
	if u.session != nil {
		st.Detection = u.session.Detection()
		st.Loading = u.session.IsLoading()
		st.Error = u.session.Err()
	} else {
		st.Detection = model.Detection{Region: model.RegionGlobal, Country: model.UnknownCountry, Method: model.MethodLanguage}
	}
	return st
}

func (u *Input) rebuild(k model.Kind) error {
	u.mu.Lock()
	u.gen++
	gen := u.gen
	initial := u.value
	u.mu.Unlock()

	in, err := u.registry.New(k, initial, u.relay(gen))
	if err != nil {
		return eris.Wrap(err, "unified: build provider")
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if gen == u.gen {
		u.active = in
	}
	return nil
}

// relay forwards a provider's callbacks to the host while that provider is
// still the active one.
func (u *Input) relay(gen uint64) provider.Callbacks {
	return provider.Callbacks{
		OnChange: func(a *model.Address) {
			u.mu.Lock()
			if gen != u.gen {
				u.mu.Unlock()
				return
			}
			u.value = a
			u.mu.Unlock()
			if u.cb.OnChange != nil {
				u.cb.OnChange(a)
			}
		},
		OnClear: func() {
			u.mu.Lock()
			stale := gen != u.gen
			u.mu.Unlock()
			if !stale && u.cb.OnClear != nil {
				u.cb.OnClear()
			}
		},
	}
}
