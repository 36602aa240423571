package cli

import "time"

// StringFlag is a flag parsed as a string. Env, when set, names an environment
// variable read when the flag is absent from the command line.
//
// - implements cli.Flag
type StringFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    string
	Env      string
}

// Flag implements cli.Flag.
func (flag StringFlag) Flag() {}

// FlagName implements cli.NamedFlag.
func (flag StringFlag) FlagName() string { return flag.Name }

// StringSliceFlag is a flag that can be repeated to build a list of strings.
//
// - implements cli.Flag
type StringSliceFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    []string
	Env      string
}

// Flag implements cli.Flag.
func (flag StringSliceFlag) Flag() {}

// FlagName implements cli.NamedFlag.
func (flag StringSliceFlag) FlagName() string { return flag.Name }

// DurationFlag is a flag parsed as a duration, like "30s" or "5m".
//
// - implements cli.Flag
type DurationFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    time.Duration
	Env      string
}

// Flag implements cli.Flag.
func (flag DurationFlag) Flag() {}

// FlagName implements cli.NamedFlag.
func (flag DurationFlag) FlagName() string { return flag.Name }

// IntFlag is a flag parsed as an integer.
//
// - implements cli.Flag
type IntFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    int
	Env      string
}

// Flag implements cli.Flag.
func (flag IntFlag) Flag() {}

// FlagName implements cli.NamedFlag.
func (flag IntFlag) FlagName() string { return flag.Name }

// BoolFlag is a switch.
//
// - implements cli.Flag
type BoolFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    bool
	Env      string
}

// Flag implements cli.Flag.
func (flag BoolFlag) Flag() {}

// FlagName implements cli.NamedFlag.
func (flag BoolFlag) FlagName() string { return flag.Name }
