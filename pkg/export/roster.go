package export

// RosterRow is one student line in an exported roster.
type RosterRow struct {
	Name    string
	Age     int
	Courses []string
	Owner   string
}

var rosterHeaders = []string{"name", "age", "courses", "owner"}
