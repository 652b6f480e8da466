// Package griddata provides named grid variables to the mesh: global sizes,
// topology indices and (x, y) profiles of the metric.
package griddata

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ghodss/yaml"
)

var ErrNotFound = errors.New("grid variable not found")

// Source is the grid data collaborator. 2D arrays are global, indexed [x][y]
// with x including the X boundary cells and y the interior points only.
type Source interface {
	HasVar(name string) bool
	Scalar(name string) (float64, error)
	Array1D(name string) ([]float64, error)
	Array2D(name string) ([][]float64, error)
}

// Memory is a Source held in maps, also the decoded form of a YAML grid file
type Memory struct {
	Scalars  map[string]float64     `json:"scalars"`
	Profiles map[string][]float64   `json:"profiles"` // Functions of x
	Fields   map[string][][]float64 `json:"fields"`   // Functions of (x, y)
}

func NewMemory() *Memory {
	return &Memory{
		Scalars:  make(map[string]float64),
		Profiles: make(map[string][]float64),
		Fields:   make(map[string][][]float64),
	}
}

// ParseYAML decodes a grid file of the form
//
//	scalars: {nx: 20, ny: 16}
//	profiles: {ShiftAngle: [...]}
//	fields: {Bxy: [[...], ...]}
func ParseYAML(data []byte) (m *Memory, err error) {
	m = NewMemory()
	if err = yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing grid file: %w", err)
	}
	if m.Scalars == nil {
		m.Scalars = make(map[string]float64)
	}
	if m.Profiles == nil {
		m.Profiles = make(map[string][]float64)
	}
	if m.Fields == nil {
		m.Fields = make(map[string][][]float64)
	}
	return
}

func ReadYAMLFile(path string) (m *Memory, err error) {
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return nil, err
	}
	return ParseYAML(data)
}

func (m *Memory) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

func (m *Memory) SetScalar(name string, val float64) *Memory {
	m.Scalars[name] = val
	return m
}

func (m *Memory) SetProfile(name string, val []float64) *Memory {
	m.Profiles[name] = val
	return m
}

// SetField stores an (x, y) array generated from fn
func (m *Memory) SetField(name string, nx, ny int, fn func(x, y int) float64) *Memory {
	arr := make([][]float64, nx)
	for x := range arr {
		arr[x] = make([]float64, ny)
		for y := range arr[x] {
			arr[x][y] = fn(x, y)
		}
	}
	m.Fields[name] = arr
	return m
}

func (m *Memory) HasVar(name string) bool {
	if _, ok := m.Scalars[name]; ok {
		return true
	}
	if _, ok := m.Profiles[name]; ok {
		return true
	}
	_, ok := m.Fields[name]
	return ok
}

func (m *Memory) Scalar(name string) (val float64, err error) {
	var ok bool
	if val, ok = m.Scalars[name]; !ok {
		err = fmt.Errorf("scalar %q: %w", name, ErrNotFound)
	}
	return
}

func (m *Memory) Array1D(name string) (val []float64, err error) {
	var ok bool
	if val, ok = m.Profiles[name]; !ok {
		err = fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}
	return
}

func (m *Memory) Array2D(name string) (val [][]float64, err error) {
	var ok bool
	if val, ok = m.Fields[name]; !ok {
		err = fmt.Errorf("field %q: %w", name, ErrNotFound)
	}
	return
}

// Names lists every variable, sorted
func (m *Memory) Names() (names []string) {
	for k := range m.Scalars {
		names = append(names, k)
	}
	for k := range m.Profiles {
		names = append(names, k)
	}
	for k := range m.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return
}
