package snapshot

// Node represents one node of a page accessibility tree as reported by
// the browser layer. Children are in document order and owned
// exclusively by their parent.
type Node struct {
	UID  string // assigned by Annotate, "uid_<n>"
	Role string
	Name string

	// Value keeps the loose typing of the accessibility layer (string,
	// number or bool). Falsy values are never rendered.
	Value any

	Disabled bool
	Expanded *bool // nil = absent; explicit false renders as "collapsed"
	Focused  bool
	Selected bool
	Required bool
	Readonly bool
	Checked  string // "", "true", "false", "mixed"
	Pressed  string // "", "true", "false", "mixed"

	Level    float64
	ValueMin float64
	ValueMax float64

	// Descriptive attributes, stripped from non-verbose snapshots.
	Description     string
	KeyShortcuts    string
	RoleDescription string
	ValueText       string
	Autocomplete    string
	HasPopup        string
	Invalid         string
	Orientation     string

	Children []*Node
}
