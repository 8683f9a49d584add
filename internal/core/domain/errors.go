package domain

import "fmt"

// ConfigurationError reports a required configuration value that is missing.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration value %s is not set", e.Key)
}

// QueriesFileNotFoundError reports a queries file that does not exist or cannot be opened.
type QueriesFileNotFoundError struct {
	Path string
	Err  error
}

func (e *QueriesFileNotFoundError) Error() string {
	return fmt.Sprintf("queries file not found in path %s", e.Path)
}

func (e *QueriesFileNotFoundError) Unwrap() error { return e.Err }

// DuplicateQueryNameError reports a query name declared more than once in one file.
type DuplicateQueryNameError struct {
	Name string
	File string
}

func (e *DuplicateQueryNameError) Error() string {
	return fmt.Sprintf("there are more than one query with name %q on XML file %q: query name must be unique", e.Name, e.File)
}

// MissingQueryBodyError reports a query element closed without a CDATA body.
type MissingQueryBodyError struct {
	Name string
	File string
}

func (e *MissingQueryBodyError) Error() string {
	return fmt.Sprintf("can't find CDATA with query string for query name %q on XML file %q", e.Name, e.File)
}

// QueryNotFoundError is returned by callers that need an error value for an
// absent named query. Registry lookups themselves report absence with a bool.
type QueryNotFoundError struct {
	Name string
}

func (e *QueryNotFoundError) Error() string {
	return fmt.Sprintf("could not find query %s in queries file", e.Name)
}
