// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

// Names of the settings a Registry relies on.
const (
	Dataset      = "dataset"
	Title        = "title"
	Type         = "type"
	X            = "x"
	Series       = "series"
	Mean         = "mean"
	ToZero       = "toZero"
	Norm         = "norm"
	YScale       = "yScale"
	Baseline     = "baseline"
	SortX        = "sortX"
	BaselineMode = "baselineMode"
)

// Names of the stock plot types.
const (
	LinePlot    = "line plot"
	BarChart    = "bar chart"
	StdDevPlot  = "standard deviation"
	OrderedBars = "ordered bars"
	Comparator  = "comparator"
	Head        = "head"
	Tail        = "tail"
	AllSystems  = "all systems"
)

// An OptionSource says where the options of a setting come from.
type OptionSource int

const (
	// FixedOptions uses SettingSpec.Options.
	FixedOptions OptionSource = iota
	// DatasetOptions lists the names of the datasets.
	DatasetOptions
	// PlotTypeOptions lists the available plot types.
	PlotTypeOptions
	// AxisOptions lists the variables usable as an axis. The
	// registry recomputes them as datasets are selected.
	AxisOptions
	// SeriesClone copies the variable selected as the series axis.
	SeriesClone
)

// A SettingSpec declares a setting.
type SettingSpec struct {
	Name    string
	Source  OptionSource
	Options []string
	Multi   bool

	// Variable marks a setting that behaves as a variable, such as
	// the dataset selector.
	Variable bool

	// FreeText settings accept any label.
	FreeText bool

	// Default is the initial selection.
	Default Selection
}

// A LockRule forces a setting to a value.
type LockRule struct {
	Setting, Value string
}

// An AxisPair names the variables of the x and series axes.
type AxisPair struct {
	X, Series string
}

// A PlotType declares a plot type and its constraints on other
// settings.
type PlotType struct {
	Name string

	// Locks are applied, in order, when this plot type is selected.
	Locks []LockRule

	// Comparator plot types compare the series selection with the
	// baseline selection and report relative differences.
	Comparator bool

	// Axes, if set, overrides the axis options with a fixed pair.
	Axes *AxisPair

	// Primary names a dataset the plot type needs. If set, the
	// plot type is only offered when that dataset is loaded, and
	// other datasets are shown as a single reference point on the
	// primary dataset's version axis.
	Primary string

	// Window, if non-zero, keeps only the first Window x categories,
	// or the last -Window if negative, after sorting.
	Window int
}

// A Preset configures a freshly defaulted registry. arg is an optional
// argument whose meaning depends on the preset.
type Preset struct {
	Name string
	Run  func(r *Registry, arg string) error
}

// A Catalog is the immutable configuration of a Registry: its
// settings, plot types, defaults, and presets.
type Catalog struct {
	Settings  []SettingSpec
	PlotTypes []PlotType

	// SingleChoice lists variables that allow only one option.
	SingleChoice []string

	// Restricted lists variables that may not be used as an axis.
	Restricted []string

	// Primary is the dataset whose version variable is the
	// default x axis and the subject of version presets.
	Primary string

	// VersionSuffix identifies version-like variables, which carry
	// metadata and are remapped between datasets when the x or
	// series axis no longer applies.
	VersionSuffix string

	// VersionDefault is the default selection of version-like
	// variables.
	VersionDefault Selection

	// Defaults holds the default selection of variables by name.
	Defaults map[string]Selection

	// Aliases maps alternative parameter names to parameter names.
	Aliases map[string]string

	Presets []Preset
}

// PrimaryVersion returns the name of the version variable of the
// primary dataset.
func (c *Catalog) PrimaryVersion() string {
	return c.Primary + c.VersionSuffix
}

func (c *Catalog) plotType(name string) (*PlotType, bool) {
	for i := range c.PlotTypes {
		if c.PlotTypes[i].Name == name {
			return &c.PlotTypes[i], true
		}
	}
	return nil, false
}

func (c *Catalog) preset(name string) (*Preset, bool) {
	for i := range c.Presets {
		if c.Presets[i].Name == name {
			return &c.Presets[i], true
		}
	}
	return nil, false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// DefaultCatalog returns the stock catalog for Scheme compiler
// benchmark archives, with "gambit" as the primary dataset.
func DefaultCatalog() *Catalog {
	yesNo := []string{"yes", "no"}
	c := &Catalog{
		SingleChoice:   []string{"stat", "measure"},
		Restricted:     []string{"stat", "measure"},
		Primary:        "gambit",
		VersionSuffix:  "-version",
		VersionDefault: Last(15),
		Defaults: map[string]Selection{
			"bench":   First(10),
			"measure": Label("real time"),
			"stat":    Label("mean"),
		},
		Aliases: map[string]string{"X": X, "Y": "measure", "y": "measure"},
	}
	c.Settings = []SettingSpec{
		{Name: Dataset, Source: DatasetOptions, Multi: true, Variable: true, Default: Label(c.Primary)},
		{Name: Title, Options: []string{""}, FreeText: true, Default: Label("")},
		{Name: Type, Source: PlotTypeOptions, Default: Label(LinePlot)},
		{Name: X, Source: AxisOptions, Default: Label(c.PrimaryVersion())},
		{Name: Series, Source: AxisOptions, Default: Label("bench")},
		{Name: Mean, Options: yesNo, Default: Label("no")},
		{Name: ToZero, Options: yesNo, Default: Label("no")},
		{Name: Norm, Options: []string{"none", "minimum", "median", "maximum"}, Default: Label("none")},
		{Name: YScale, Options: []string{"auto", "linear", "log"}, Default: Label("auto")},
		{Name: Baseline, Source: SeriesClone},
		{Name: SortX, Options: yesNo, Default: Label("no")},
		{Name: BaselineMode, Options: []string{"auto", "manual"}, Default: Label("auto")},
	}
	windowLocks := []LockRule{{ToZero, "no"}, {Mean, "yes"}, {Norm, "none"}, {YScale, "auto"}, {SortX, "yes"}}
	c.PlotTypes = []PlotType{
		{Name: LinePlot},
		{Name: BarChart, Locks: []LockRule{{ToZero, "no"}}},
		{Name: StdDevPlot},
		{Name: OrderedBars, Locks: []LockRule{{ToZero, "no"}}},
		{Name: Comparator, Comparator: true, Locks: []LockRule{{ToZero, "no"}, {Mean, "yes"}, {Norm, "none"}}},
		{Name: Head, Comparator: true, Window: 20, Locks: windowLocks},
		{Name: Tail, Comparator: true, Window: -20, Locks: windowLocks},
		{
			Name:    AllSystems,
			Primary: c.Primary,
			Axes:    &AxisPair{X: c.PrimaryVersion(), Series: Dataset},
			Locks:   []LockRule{{X, c.PrimaryVersion()}, {Series, Dataset}, {Mean, "no"}},
		},
	}
	c.Presets = stockPresets(c)
	return c
}
