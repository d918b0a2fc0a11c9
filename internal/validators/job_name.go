package validators

import (
	"fmt"
	"regexp"
)

// MaxJobNameLength keeps job names usable as directory names and lock file names
const MaxJobNameLength = 63

var jobNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)

// ValidateJobName checks a sync job name. Job names key the trigger, the run
// lock and the status record, and name a directory in file storage, so they
// are limited to lowercase letters, digits, '.', '_' and '-', and must start
// and end with a letter or digit.
func ValidateJobName(name string) error {
	if name == "" {
		return fmt.Errorf("job name cannot be empty")
	}
	if len(name) > MaxJobNameLength {
		return fmt.Errorf("job name exceeds maximum length of %d characters (got %d)", MaxJobNameLength, len(name))
	}
	if !jobNamePattern.MatchString(name) {
		return fmt.Errorf("job name %q must match %s", name, jobNamePattern)
	}
	return nil
}
