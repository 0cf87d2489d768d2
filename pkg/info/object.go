package info

// Object describes one region of a disk image. It gives tools like 'fatview' a generic way to display the
// image layout without knowing every structure.
type Object interface {
	Type() string
	Name() string
	Description() string
	Properties() map[string]interface{}
	Offset() int64
	Size() int
	GetObjects() []Object
	Marshal() ([]byte, error)
}

// Region is the flattened, serializable form of an Object used for text/json/yaml output.
type Region struct {
	Type        string                 `json:"type" yaml:"type"`
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Offset      int64                  `json:"offset" yaml:"offset"`
	Size        int                    `json:"size" yaml:"size"`
	Properties  map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
	Children    []Region               `json:"children,omitempty" yaml:"children,omitempty"`
}

// Describe converts an Object tree into Regions.
func Describe(obj Object) Region {
	r := Region{
		Type:        obj.Type(),
		Name:        obj.Name(),
		Description: obj.Description(),
		Offset:      obj.Offset(),
		Size:        obj.Size(),
		Properties:  obj.Properties(),
	}
	for _, child := range obj.GetObjects() {
		r.Children = append(r.Children, Describe(child))
	}
	return r
}
