// Package record describes the destination tables of the ingester and builds
// typed rows from split record fields.
//
// Each record-type tag maps to a Shape: an ordered list of named, typed
// fields. The same Shape produces both the row values (Parse) and the insert
// column list (Columns), so the two cannot drift apart.
package record

// Kind is the type of a field.
type Kind int

const (
	// Text fields are stored verbatim.
	Text Kind = iota
	// Int fields have all spaces removed, then parse as a base-10 int64.
	Int
)

// String returns the SQLite column type of the kind.
func (k Kind) String() string {
	if k == Int {
		return "INTEGER"
	}
	return "TEXT"
}

// Field is one named column of a Shape.
type Field struct {
	Name string
	Kind Kind
}

// Envelope columns every serial table starts with.
const (
	ColumnTimestamp = "Timestamp"
	ColumnNode      = "Node"
)

// Table names that are not record-type tags.
const (
	TableOutput = "output"
	TableServer = "server"
	TagInfo     = "info"
)

// Shape is the fixed layout of one destination table.
type Shape struct {
	// Table is the destination table, equal to the record-type tag.
	Table string

	// Envelope lists the leading columns filled from the line envelope
	// rather than from the payload fields.
	Envelope []string

	// Fields lists the payload columns, in order.
	Fields []Field

	// Optional is how many trailing Fields may be absent from a line.
	// Absent fields are stored as NULL.
	Optional int
}

// Required returns how many leading fields a line must carry.
func (s *Shape) Required() int {
	return len(s.Fields) - s.Optional
}

// Columns returns the full ordered column list: envelope, then fields.
func (s *Shape) Columns() []string {
	cols := make([]string, 0, len(s.Envelope)+len(s.Fields))
	cols = append(cols, s.Envelope...)
	for _, f := range s.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

func text(names ...string) []Field {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n, Kind: Text}
	}
	return fields
}

var serialEnvelope = []string{ColumnTimestamp, ColumnNode}

// shapes holds every table written by the ingester.
var shapes = []*Shape{
	{
		Table:    "neighbor_stats",
		Envelope: serialEnvelope,
		Fields: []Field{
			{"L2 address", Text},
			{"fresh", Text},
			{"etx", Text},
			{"sent", Int},
			{"received", Int},
			{"rssi (dBm)", Int},
			{"lqi", Int},
			{"avg tx time (µs)", Int},
		},
	},
	{
		Table:    "rpl_stats",
		Envelope: serialEnvelope,
		Fields: []Field{
			{"Packet Type", Text},
			{"Measurement Type", Text},
			{"RX unicast", Int},
			{"TX unicast", Int},
			{"RX multicast", Int},
			{"TX multicast", Int},
		},
	},
	{
		Table:    "rpl_stats_dodag",
		Envelope: serialEnvelope,
		Fields: []Field{
			{"Instance ID", Text},
			{"IPv6 Adress", Text},
			{"Rank", Int},
			{"Role", Text},
			{"Prefix Information", Text},
			{"Trickle Interval Size Min", Int},
			{"Trickle Interval Size Max", Int},
			{"Trickle Redundancy Constant", Int},
			{"Trickle Counter", Int},
			{"Trickle TC", Int},
		},
	},
	{
		Table:    "rpl_stats_instance",
		Envelope: serialEnvelope,
		Fields: text(
			"Instance ID",
			"Interface ID",
			"Mode of Operation",
			"Objective Code Point",
			"Min Hop Rank Increase",
			"Max Rank Increase",
		),
	},
	{
		Table:    "rpl_stats_parent",
		Envelope: serialEnvelope,
		Fields:   text("Instance ID", "IPv6 Adress", "Rank"),
	},
	{
		Table:    "rpl_status",
		Envelope: serialEnvelope,
		Fields:   text("Type of table", "Index of the table", "Table status"),
	},
	{
		Table:    "stats",
		Envelope: serialEnvelope,
		Fields: []Field{
			{"success", Int},
			{"layer", Text},
			{"rx packets", Int},
			{"rx bytes", Int},
			{"tx packets", Int},
			{"tx multicast packets", Int},
			{"tx bytes", Int},
			{"tx succeeded", Int},
			{"tx errors", Int},
		},
		Optional: 1,
	},
	{
		Table:    "udp",
		Envelope: serialEnvelope,
		Fields: []Field{
			{"payload size", Text},
			{"destination address", Text},
			{"destination port", Int},
			{"payload", Text},
		},
	},
	{
		Table:    TagInfo,
		Envelope: serialEnvelope,
		Fields:   text("Message"),
	},
	{
		Table:    TableOutput,
		Envelope: serialEnvelope,
		Fields:   text("Output Stdout"),
	},
	{
		Table:    TableServer,
		Envelope: []string{ColumnTimestamp},
		Fields: []Field{
			{"IPv6 Adress", Text},
			{"receiver port", Int},
			{"payload", Text},
		},
	},
}
