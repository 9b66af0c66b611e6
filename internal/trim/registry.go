package trim

import (
	"log"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
)

// Plugin is one entry of the static registry: a name, the flags that
// configure it and a constructor reading them.
type Plugin[T any] struct {
	Name   string
	Params []string
	New    func() (T, error)
}

// Descriptor resolves which plugins of one kind are enabled from the
// enable/disable flags of the command line.
type Descriptor[T any] struct {
	enableFlag     string
	disableFlag    string
	disableAllFlag string
	plugins        []Plugin[T]
	defaults       []string

	enabled    []string
	disabled   []string
	disableAll bool
}

func newDescriptor[T any](enable, disable, disableAll string, plugins []Plugin[T], defaults []string) *Descriptor[T] {
	return &Descriptor[T]{
		enableFlag:     enable,
		disableFlag:    disable,
		disableAllFlag: disableAll,
		plugins:        plugins,
		defaults:       defaults,
	}
}

// AddFlags registers the enable, disable and disable-all flags.
func (d *Descriptor[T]) AddFlags(fs *pflag.FlagSet) {
	fs.StringArrayVar(&d.enabled, d.enableFlag, nil, "enable `NAME` after the defaults (repeatable): "+strings.Join(d.Names(), ", "))
	fs.StringArrayVar(&d.disabled, d.disableFlag, nil, "disable the default `NAME` (repeatable): "+strings.Join(d.defaults, ", "))
	fs.BoolVar(&d.disableAll, d.disableAllFlag, false, "disable every default; only the ones given with --"+d.enableFlag+" are applied")
}

// Names lists every registered plugin in registration order.
func (d *Descriptor[T]) Names() []string {
	names := make([]string, len(d.plugins))
	for i, p := range d.plugins {
		names[i] = p.Name
	}
	return names
}

// Defaults lists the default plugins.
func (d *Descriptor[T]) Defaults() []string {
	return append([]string(nil), d.defaults...)
}

func (d *Descriptor[T]) lookup(name string) (Plugin[T], bool) {
	for _, p := range d.plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin[T]{}, false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Resolve checks the selection and builds the final plugins: active
// defaults first, then the user-enabled ones in command line order.
// Conflicting selections are ErrBadConfiguration.
func (d *Descriptor[T]) Resolve(fs *pflag.FlagSet, logger *log.Logger) ([]T, error) {
	seen := make(map[string]bool)
	for _, name := range d.enabled {
		if _, ok := d.lookup(name); !ok {
			return nil, errkind.Badf("--%s %s: unknown, expected one of %s", d.enableFlag, name, strings.Join(d.Names(), ", "))
		}
		if seen[name] {
			return nil, errkind.Badf("--%s %s given twice", d.enableFlag, name)
		}
		seen[name] = true
	}
	seenDisabled := make(map[string]bool)
	for _, name := range d.disabled {
		if _, ok := d.lookup(name); !ok {
			return nil, errkind.Badf("--%s %s: unknown, expected one of %s", d.disableFlag, name, strings.Join(d.Names(), ", "))
		}
		if seenDisabled[name] {
			return nil, errkind.Badf("--%s %s given twice", d.disableFlag, name)
		}
		seenDisabled[name] = true
		if seen[name] {
			return nil, errkind.Badf("%s is both enabled (--%s) and disabled (--%s)", name, d.enableFlag, d.disableFlag)
		}
		if !contains(d.defaults, name) && logger != nil {
			logger.Printf("WARNING: --%s %s: not a default, nothing to disable", d.disableFlag, name)
		}
	}
	if d.disableAll && len(d.disabled) > 0 {
		return nil, errkind.Badf("--%s cannot be combined with --%s", d.disableFlag, d.disableAllFlag)
	}

	var final []string
	if !d.disableAll {
		for _, name := range d.defaults {
			if !seenDisabled[name] {
				final = append(final, name)
			}
		}
	}
	for _, name := range d.enabled {
		if !contains(final, name) {
			final = append(final, name)
		}
	}

	for _, p := range d.plugins {
		if contains(final, p.Name) {
			continue
		}
		for _, param := range p.Params {
			if fs != nil && fs.Changed(param) {
				return nil, errkind.Badf("--%s is only used by %s, which is not enabled", param, p.Name)
			}
		}
	}

	out := make([]T, 0, len(final))
	for _, name := range final {
		p, _ := d.lookup(name)
		v, err := p.New()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Options holds the parameters of every built-in trimmer and filter.
type Options struct {
	MottQualityThreshold int
	Cut5primeBases       int
	Cut3primeBases       int
	MinReadLength        int
	MaxReadLength        int
	AmbigFilterFrac      float64
}

// AddFlags registers the plugin parameters.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.MottQualityThreshold, "mottQualityThreshold", DefaultMottThreshold, "minimum quality kept by "+MottQualityName)
	fs.IntVar(&o.Cut5primeBases, "cut5primeBases", 0, "bases cut from the 5' end by "+CutReadName)
	fs.IntVar(&o.Cut3primeBases, "cut3primeBases", 0, "bases cut from the 3' end by "+CutReadName)
	fs.IntVar(&o.MinReadLength, "minReadLength", DefaultMinReadLength, "minimum length kept by "+ReadLengthName)
	fs.IntVar(&o.MaxReadLength, "maxReadLength", DefaultMaxReadLength, "maximum length kept by "+ReadLengthName)
	fs.Float64Var(&o.AmbigFilterFrac, "ambigFilterFrac", DefaultAmbigFilterFrac, "maximum fraction of N kept by "+AmbiguousBasesName)
}

// DefaultOptions mirrors the flag defaults.
func DefaultOptions() *Options {
	return &Options{
		MottQualityThreshold: DefaultMottThreshold,
		MinReadLength:        DefaultMinReadLength,
		MaxReadLength:        DefaultMaxReadLength,
		AmbigFilterFrac:      DefaultAmbigFilterFrac,
	}
}

// NewTrimmerDescriptor registers the built-in trimmers reading their
// parameters from o. TrailingNtrimmer and MottQualityTrimmer are defaults.
func NewTrimmerDescriptor(o *Options) *Descriptor[Trimmer] {
	plugins := []Plugin[Trimmer]{
		{Name: TrailingNName, New: func() (Trimmer, error) { return TrailingNTrimmer{}, nil }},
		{Name: MottQualityName, Params: []string{"mottQualityThreshold"}, New: func() (Trimmer, error) {
			return NewMottQualityTrimmer(o.MottQualityThreshold)
		}},
		{Name: CutReadName, Params: []string{"cut5primeBases", "cut3primeBases"}, New: func() (Trimmer, error) {
			return NewCutReadTrimmer(o.Cut5primeBases, o.Cut3primeBases)
		}},
	}
	return newDescriptor("trimmer", "disableTrimmer", "disableAllDefaultTrimmers", plugins,
		[]string{TrailingNName, MottQualityName})
}

// NewFilterDescriptor registers the built-in filters. ReadLengthReadFilter
// is the default.
func NewFilterDescriptor(o *Options) *Descriptor[Filter] {
	plugins := []Plugin[Filter]{
		{Name: ReadLengthName, Params: []string{"minReadLength", "maxReadLength"}, New: func() (Filter, error) {
			return NewReadLengthFilter(o.MinReadLength, o.MaxReadLength)
		}},
		{Name: AmbiguousBasesName, Params: []string{"ambigFilterFrac"}, New: func() (Filter, error) {
			return NewAmbiguousBaseFilter(o.AmbigFilterFrac)
		}},
	}
	return newDescriptor("readFilter", "disableReadFilter", "disableAllDefaultReadFilters", plugins,
		[]string{ReadLengthName})
}
