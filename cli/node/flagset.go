package node

import (
	"time"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/lottery/cli"
)

// FlagSet holds the flags of a command on their way to the daemon. The values
// go through JSON, so the numbers are read back from float64 and the durations
// are numbers of nanoseconds.
//
// - implements cli.Flags
type FlagSet map[string]interface{}

// newFlagSet collects the values of the flags of the command and of its parent
// commands. A flag of a subcommand takes precedence over a parent flag with
// the same name.
func newFlagSet(flags cli.Flags) FlagSet {
	fset := make(FlagSet)

	switch ctx := flags.(type) {
	case *urfave.Context:
		for _, ancestor := range ctx.Lineage() {
			if ancestor.App != nil {
				fset.collect(ctx, ancestor.App.Flags)
			}
			if ancestor.Command != nil {
				fset.collect(ctx, ancestor.Command.Flags)
			}
		}
	case FlagSet:
		for name, value := range ctx {
			fset[name] = value
		}
	}

	return fset
}

// collect reads the definitions through the typed getters of the context,
// which look up the flag in the closest context that parsed it. A context only
// parses its own flags, even though each one of them knows the application.
func (fset FlagSet) collect(ctx *urfave.Context, flags []urfave.Flag) {
	for _, flag := range flags {
		names := flag.Names()
		if len(names) == 0 {
			continue
		}

		name := names[0]

		_, found := fset[name]
		if found {
			continue
		}

		switch flag.(type) {
		case *urfave.StringFlag:
			fset[name] = ctx.String(name)
		case *urfave.StringSliceFlag:
			fset[name] = ctx.StringSlice(name)
		case *urfave.DurationFlag:
			fset[name] = ctx.Duration(name)
		case *urfave.IntFlag:
			fset[name] = ctx.Int(name)
		case *urfave.BoolFlag:
			fset[name] = ctx.Bool(name)
		}
	}
}

// String implements cli.Flags.
func (fset FlagSet) String(name string) string {
	str, _ := fset[name].(string)
	return str
}

// StringSlice implements cli.Flags. It returns nil when the flag is not a list
// of strings.
func (fset FlagSet) StringSlice(name string) []string {
	switch v := fset[name].(type) {
	case []string:
		return v
	case []interface{}:
		values := make([]string, 0, len(v))

		for _, elem := range v {
			str, ok := elem.(string)
			if !ok {
				return nil
			}

			values = append(values, str)
		}

		return values
	default:
		return nil
	}
}

// Duration implements cli.Flags.
func (fset FlagSet) Duration(name string) time.Duration {
	switch v := fset[name].(type) {
	case time.Duration:
		return v
	case float64:
		return time.Duration(v)
	default:
		return 0
	}
}

// Path implements cli.Flags.
func (fset FlagSet) Path(name string) string {
	return fset.String(name)
}

// Int implements cli.Flags. A float is accepted only when it has no
// fractional part.
func (fset FlagSet) Int(name string) int {
	switch v := fset[name].(type) {
	case int:
		return v
	case float64:
		if v != float64(int(v)) {
			return 0
		}

		return int(v)
	default:
		return 0
	}
}

// Bool implements cli.Flags.
func (fset FlagSet) Bool(name string) bool {
	b, _ := fset[name].(bool)
	return b
}
