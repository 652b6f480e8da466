package stencils

import (
	"fmt"
	"log/slog"

	"github.com/notargets/plasmamesh/types"
)

// Options is the named option lookup the defaults are read from
type Options interface {
	IsSet(key string) bool
	GetString(key string) string
}

// Defaults is the method used for each axis, kind and staggering when a call
// asks for DIFF_DEFAULT
type Defaults struct {
	methods [3][5][2]types.DiffMethod
}

var kinds = []types.DerivKind{types.FIRST, types.SECOND, types.FOURTH, types.UPWIND, types.FLUX}

func fallback(kind types.DerivKind) types.DiffMethod {
	if kind.IsFlow() {
		return types.DIFF_U1
	}
	return types.DIFF_C2
}

// NewDefaults reads the option sections ddx, ddy and ddz. Within a section a
// staggered kind is looked up as <kind>stag, then <kind>, then all, and a
// normal kind as <kind>, then all. A method inherited from a less specific key
// that a table does not have leaves that table at its default.
func NewDefaults(opts Options, log *slog.Logger) (d *Defaults, err error) {
	if log == nil {
		log = slog.Default()
	}
	d = &Defaults{}
	for _, dir := range []types.Direction{types.X, types.Y, types.Z} {
		section := "dd" + dir.String()
		for _, kind := range kinds {
			for _, stag := range []bool{false, true} {
				if _, ok := tables[tableKey{kind, stag}]; !ok {
					continue
				}
				keys := []string{TableName(kind, false), "all"}
				if stag {
					keys = append([]string{TableName(kind, true)}, keys...)
				}
				var (
					method = fallback(kind)
					from   = "default"
				)
				for _, key := range keys {
					if opts != nil && opts.IsSet(section+"."+key) {
						from = section + "." + key
						name := opts.GetString(from)
						if method, err = types.NewDiffMethod(name); err != nil {
							return nil, fmt.Errorf("option %s: unknown method %q, options are %v",
								from, name, Methods(kind, stag))
						}
						break
					}
				}
				if _, err = Lookup(dir, kind, stag, method); err != nil {
					if from == "default" || from == section+"."+TableName(kind, stag) {
						return nil, fmt.Errorf("option %s: %w", from, err)
					}
					// Inherited keys only apply to the tables that have the method
					log.Warn("derivative method not in table, using default",
						"option", from, "table", TableName(kind, stag), "method", method.Key())
					method, from, err = fallback(kind), "default", nil
				}
				d.methods[dir][kind][b2i(stag)] = method
				log.Debug("derivative method",
					"dir", dir.String(), "table", TableName(kind, stag),
					"method", method.Key(), "from", from)
			}
		}
	}
	return
}

// Method returns the default for a table
func (d *Defaults) Method(dir types.Direction, kind types.DerivKind, stag bool) (m types.DiffMethod) {
	if m = d.methods[dir][kind][b2i(stag)]; m == types.DIFF_DEFAULT {
		m = fallback(kind)
	}
	return
}

// Resolve replaces DIFF_DEFAULT by the table default and returns the kernel
func (d *Defaults) Resolve(dir types.Direction, kind types.DerivKind, stag bool, method types.DiffMethod) (Kernel, error) {
	if method == types.DIFF_DEFAULT {
		method = d.Method(dir, kind, stag)
	}
	return Lookup(dir, kind, stag, method)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
