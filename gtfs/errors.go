package gtfs

import "fmt"

// StructuralError reports a required table that is absent from the archive.
// No feed is produced when it is returned.
type StructuralError struct {
	File string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid GTFS feed: missing required file %s", e.File)
}
