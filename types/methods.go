package types

import (
	"fmt"
	"sort"
	"strings"
)

// DiffMethod selects a finite difference scheme
type DiffMethod uint8

const (
	DIFF_DEFAULT DiffMethod = iota
	DIFF_U1
	DIFF_U2
	DIFF_U3
	DIFF_C2
	DIFF_C4
	DIFF_W2
	DIFF_W3
	DIFF_S2
	DIFF_SPLIT
	DIFF_FFT
)

type diffName struct {
	Key, Description string
}

var diffNames = [...]diffName{
	{"DEFAULT", "Default method"},
	{"U1", "First order upwinding"},
	{"U2", "Second order upwinding"},
	{"U3", "Third order upwinding"},
	{"C2", "Second order central"},
	{"C4", "Fourth order central"},
	{"W2", "Second order WENO"},
	{"W3", "Third order WENO"},
	{"S2", "Smoothing 2nd order"},
	{"SPLIT", "Split into upwind and central"},
	{"FFT", "FFT"},
}

var DiffNameMap = func() (m map[string]DiffMethod) {
	m = make(map[string]DiffMethod, len(diffNames))
	for i, dn := range diffNames {
		m[dn.Key] = DiffMethod(i)
	}
	return
}()

func (m DiffMethod) String() string {
	if int(m) < len(diffNames) {
		return "DIFF_" + diffNames[m].Key
	}
	return fmt.Sprintf("DiffMethod(%d)", uint8(m))
}

// Key is the option value naming this method
func (m DiffMethod) Key() string {
	return diffNames[m].Key
}

func (m DiffMethod) Description() string {
	return diffNames[m].Description
}

// NewDiffMethod parses an option value, case insensitive
func NewDiffMethod(key string) (m DiffMethod, err error) {
	var ok bool
	if m, ok = DiffNameMap[strings.ToUpper(strings.TrimSpace(key))]; !ok {
		keys := make([]string, 0, len(DiffNameMap))
		for k := range DiffNameMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		err = fmt.Errorf("unknown differencing method %q, options are %v", key, keys)
	}
	return
}

// DerivKind is the family of an index derivative
type DerivKind uint8

const (
	FIRST DerivKind = iota
	SECOND
	FOURTH
	UPWIND
	FLUX
)

func (k DerivKind) String() string {
	return [...]string{"First", "Second", "Fourth", "Upwind", "Flux"}[k]
}

// IsFlow is true for the kinds taking a velocity and a field
func (k DerivKind) IsFlow() bool {
	return k == UPWIND || k == FLUX
}
