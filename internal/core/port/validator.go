package port

// StatementValidator rejects statements that must not be executed.
type StatementValidator interface {
	Validate(sql string) error
}
