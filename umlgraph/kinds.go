package umlgraph

import "fmt"

const (
	ACTOR_TYPE           = "actor"
	USECASE_TYPE         = "usecase"
	CLASS_TYPE           = "class"
	INTERFACE_TYPE       = "interface"
	SYSTEM_BOUNDARY_TYPE = "system-boundary"

	CLASS_ASSOCIATION_TYPE         = "class-association"
	USECASE_ASSOCIATION_TYPE       = "usecase-association"
	ACTOR_USECASE_ASSOCIATION_TYPE = "actor-usecase-association"
)

// ShapeKind is the closed set of shape payloads. Only types in this package
// implement it.
type ShapeKind interface {
	Type() string
	shapeKind()
}

type Actor struct {
	Name string
}

type UseCase struct {
	Name string
}

type Visibility string

const (
	Public    Visibility = "+"
	Private   Visibility = "-"
	Protected Visibility = "*"
)

type Attribute struct {
	Visibility Visibility `json:"visibility"`
	Name       string     `json:"name"`
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s %s", a.Visibility, a.Name)
}

type Param struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type Method struct {
	Visibility Visibility `json:"visibility"`
	Name       string     `json:"name"`
	Params     []Param    `json:"params"`
	ReturnType string     `json:"returnType,omitempty"`
}

func (m Method) String() string {
	params := ""
	for i, p := range m.Params {
		if i > 0 {
			params += ", "
		}
		params += p.Name
		if p.Type != "" {
			params += ":" + p.Type
		}
	}
	s := fmt.Sprintf("%s %s(%s)", m.Visibility, m.Name, params)
	if m.ReturnType != "" {
		s += ":" + m.ReturnType
	}
	return s
}

// Members is the body shared by classes and interfaces.
type Members struct {
	Attributes []Attribute
	Methods    []Method
}

func (m Members) copy() Members {
	out := Members{}
	if m.Attributes != nil {
		out.Attributes = append([]Attribute{}, m.Attributes...)
	}
	if m.Methods != nil {
		out.Methods = make([]Method, 0, len(m.Methods))
		for _, meth := range m.Methods {
			meth.Params = append([]Param(nil), meth.Params...)
			out.Methods = append(out.Methods, meth)
		}
	}
	return out
}

type Class struct {
	Name string
	Members
}

type Interface struct {
	Name string
	Members
}

type SystemBoundary struct {
	Name string
}

func (Actor) Type() string          { return ACTOR_TYPE }
func (UseCase) Type() string        { return USECASE_TYPE }
func (Class) Type() string          { return CLASS_TYPE }
func (Interface) Type() string      { return INTERFACE_TYPE }
func (SystemBoundary) Type() string { return SYSTEM_BOUNDARY_TYPE }

func (Actor) shapeKind()          {}
func (UseCase) shapeKind()        {}
func (Class) shapeKind()          {}
func (Interface) shapeKind()      {}
func (SystemBoundary) shapeKind() {}

// ShapeName returns the display name carried by every kind.
func ShapeName(k ShapeKind) string {
	switch k := k.(type) {
	case Actor:
		return k.Name
	case UseCase:
		return k.Name
	case Class:
		return k.Name
	case Interface:
		return k.Name
	case SystemBoundary:
		return k.Name
	default:
		panic(fmt.Sprintf("umlgraph: unhandled shape kind %T", k))
	}
}

// DefaultSize is the size a shape of kind k is created with.
func DefaultSize(k ShapeKind) (width, height float64) {
	switch k.(type) {
	case Actor:
		return 60, 120
	case UseCase:
		return 180, 80
	case Class, Interface:
		return 160, 120
	case SystemBoundary:
		return 600, 400
	default:
		panic(fmt.Sprintf("umlgraph: unhandled shape kind %T", k))
	}
}

func copyShapeKind(k ShapeKind) ShapeKind {
	switch k := k.(type) {
	case Class:
		return Class{Name: k.Name, Members: k.Members.copy()}
	case Interface:
		return Interface{Name: k.Name, Members: k.Members.copy()}
	default:
		return k
	}
}

// EdgeKind is the closed set of edge payloads.
type EdgeKind interface {
	Type() string
	edgeKind()
}

type ClassAssocKind string

const (
	Association    ClassAssocKind = "association"
	Directed       ClassAssocKind = "directed"
	Aggregation    ClassAssocKind = "aggregation"
	Composition    ClassAssocKind = "composition"
	Generalization ClassAssocKind = "generalization"
	Realization    ClassAssocKind = "realization"
)

func (k ClassAssocKind) Valid() bool {
	switch k {
	case Association, Directed, Aggregation, Composition, Generalization, Realization:
		return true
	}
	return false
}

type ClassAssociation struct {
	Kind ClassAssocKind
	Name string
	// nil when the end has no cardinality
	CardinalitySource *int
	CardinalityTarget *int
}

type UseCaseRelation string

const (
	Includes UseCaseRelation = "includes"
	Extends  UseCaseRelation = "extends"
)

type UseCaseAssociation struct {
	Relation UseCaseRelation
}

type ActorUseCaseAssociation struct {
	Name string
}

func (ClassAssociation) Type() string        { return CLASS_ASSOCIATION_TYPE }
func (UseCaseAssociation) Type() string      { return USECASE_ASSOCIATION_TYPE }
func (ActorUseCaseAssociation) Type() string { return ACTOR_USECASE_ASSOCIATION_TYPE }

func (ClassAssociation) edgeKind()        {}
func (UseCaseAssociation) edgeKind()      {}
func (ActorUseCaseAssociation) edgeKind() {}

// Adornment is the decoration drawn where an edge meets its target.
type Adornment string

const (
	NoAdornment             Adornment = "none"
	ArrowAdornment          Adornment = "arrow"
	FilledArrowAdornment    Adornment = "triangle"
	HollowTriangleAdornment Adornment = "unfilled-triangle"
	HollowDiamondAdornment  Adornment = "diamond"
	FilledDiamondAdornment  Adornment = "filled-diamond"
)

// EdgeStyle is everything about drawing an edge that depends on its kind.
type EdgeStyle struct {
	Adornment Adornment
	Dashed    bool
	Label     string
}

// StyleOf dispatches the kind-specific drawing contract.
func StyleOf(k EdgeKind) EdgeStyle {
	switch k := k.(type) {
	case ClassAssociation:
		s := EdgeStyle{Label: k.Name}
		switch k.Kind {
		case Directed:
			s.Adornment = ArrowAdornment
		case Aggregation:
			s.Adornment = HollowDiamondAdornment
		case Composition:
			s.Adornment = FilledDiamondAdornment
		case Generalization:
			s.Adornment = HollowTriangleAdornment
		case Realization:
			s.Adornment = HollowTriangleAdornment
			s.Dashed = true
		default:
			s.Adornment = NoAdornment
		}
		return s
	case UseCaseAssociation:
		label := "<<includes>>"
		if k.Relation == Extends {
			label = "<<extends>>"
		}
		return EdgeStyle{Adornment: FilledArrowAdornment, Dashed: true, Label: label}
	case ActorUseCaseAssociation:
		return EdgeStyle{Adornment: NoAdornment, Label: k.Name}
	default:
		panic(fmt.Sprintf("umlgraph: unhandled edge kind %T", k))
	}
}

func copyEdgeKind(k EdgeKind) EdgeKind {
	if ca, ok := k.(ClassAssociation); ok {
		if ca.CardinalitySource != nil {
			v := *ca.CardinalitySource
			ca.CardinalitySource = &v
		}
		if ca.CardinalityTarget != nil {
			v := *ca.CardinalityTarget
			ca.CardinalityTarget = &v
		}
		return ca
	}
	return k
}
