package domain

// QueryDefinition is a named SQL statement loaded from the queries file.
type QueryDefinition struct {
	Name string
	Body string
}
